// Command echo runs a single-loop TCP echo server, the smallest
// end-to-end exercise of Acceptor, Connection and EventLoop together.
package main

import (
	"fmt"
	"log"

	muduo "github.com/littleblus/my-muduo"
	"github.com/littleblus/my-muduo/netfd"
)

func main() {
	opts := muduo.NewOptions(muduo.ReuseAddr(true))
	logger, err := muduo.NewLogger("")
	if err != nil {
		log.Fatalf("NewLogger: %v", err)
	}

	loop, err := muduo.NewEventLoop(opts, logger, muduo.NewMetrics(64))
	if err != nil {
		log.Fatalf("NewEventLoop: %v", err)
	}

	_, err = muduo.NewAcceptor(loop, ":8080", opts, logger, func(c *muduo.Connection) {
		netfd.SetNoDelay(c.Fd(), 1)
		c.SetMessageCallback(func(c *muduo.Connection, in *muduo.Buffer) {
			c.Send(in.Peek())
			in.Consume(in.ReadableSize())
		})
		c.SetClosedCallback(func(c *muduo.Connection) {
			fmt.Printf("connection %d from %s closed\n", c.ID(), c.RemoteAddr())
		})
	})
	if err != nil {
		log.Fatalf("NewAcceptor: %v", err)
	}

	fmt.Println("echo server listening on :8080")
	if err := loop.Run(); err != nil {
		log.Fatalf("Run: %v", err)
	}
}
