// Command historycli is an interactive console over a command-history
// ring: add records, then walk them with prev/next the way a shell's
// line-editing history does. Grounded on the teacher's
// internal/control/stdin.go debug console, whose bufio.Reader command
// loop this reuses almost verbatim — only the command set changed.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"xbuf/pkg/history"
)

var log = logrus.WithField("component", "historycli")

func main() {
	capacity := flag.Int("capacity", history.DefaultCapacity, "ring capacity in bytes")
	flag.Parse()

	r, err := history.New(*capacity)
	if err != nil {
		log.WithError(err).Fatal("failed to create history ring")
	}

	fmt.Println("=== History Console ===")
	fmt.Println("  add <text> - append a record")
	fmt.Println("  prev       - show the previous record")
	fmt.Println("  next       - show the next record")
	fmt.Println("  count      - show the number of stored records")
	fmt.Println("  q          - exit")
	fmt.Println("========================")

	dst := make([]byte, *capacity)
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			log.WithError(err).Warn("failed to read input")
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case line == "q" || line == "quit" || line == "exit":
			return
		case line == "count":
			fmt.Println(r.Count())
		case line == "prev":
			printRecord(r.Prev(dst))
		case line == "next":
			printRecord(r.Next(dst))
		case strings.HasPrefix(line, "add "):
			text := strings.TrimPrefix(line, "add ")
			if err := r.Add([]byte(text)); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("added %q (count=%d)\n", text, r.Count())
		default:
			fmt.Println("unknown command:", line)
		}
	}
}

func printRecord(out []byte, err error) {
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("%q\n", string(out))
}
