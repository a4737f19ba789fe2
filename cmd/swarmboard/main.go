// Command swarmboard is the read-only coordination dashboard: a small
// HTTP server that exposes the on-disk agent registry, message log, and
// lock directory as JSON, plus a server-sent-events stream that pushes
// an update whenever one of those files changes. It never mutates
// state — it's a presenter over the same files cmd/swarm reads and
// writes.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/clauded/swarm/pkg/coordinator"
)

func main() {
	addr := flag.String("addr", ":4590", "listen address")
	root := flag.String("root", "", "project root (default: auto-detect)")
	flag.Parse()

	coord, err := coordinator.New(*root, coordinator.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarmboard: %v\n", err)
		os.Exit(1)
	}

	srv, err := NewServer(coord)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarmboard: %v\n", err)
		os.Exit(1)
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("swarmboard: serving %s on %s", coord.Root, *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "swarmboard: %v\n", err)
		os.Exit(1)
	}
}
