// Sparring runs a small local practice server speaking the same wire
// protocol as the real platform, so the client can be exercised without an
// account: rooms, timed discussions, votes and final ratings.
package main

import (
	"flag"
	"log"
	"time"

	"go-parley/internal/sparring"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	length := flag.Duration("length", 5*time.Minute, "discussion length")
	tick := flag.Duration("tick", time.Minute, "timer announcement interval")
	flag.Parse()

	srv := sparring.New(
		sparring.WithDiscussionLength(*length),
		sparring.WithTimerInterval(*tick),
	)

	log.Printf("sparring server listening on %s", *addr)
	if err := srv.Run(*addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
