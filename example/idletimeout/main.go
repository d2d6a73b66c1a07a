// Command idletimeout runs a TCP server that auto-closes any connection
// silent for more than five seconds, exercising Connection's idle-timer
// wiring (Established -> TimeWheel.Add, handleRead -> touchIdleTimer).
package main

import (
	"fmt"
	"log"

	muduo "github.com/littleblus/my-muduo"
)

func main() {
	opts := muduo.NewOptions(
		muduo.ReuseAddr(true),
		muduo.IdleConnTimeout(5),
		muduo.TimeWheelBuckets(16),
	)
	logger, err := muduo.NewLogger("")
	if err != nil {
		log.Fatalf("NewLogger: %v", err)
	}
	metrics := muduo.NewMetrics(64)

	loop, err := muduo.NewEventLoop(opts, logger, metrics)
	if err != nil {
		log.Fatalf("NewEventLoop: %v", err)
	}

	_, err = muduo.NewAcceptor(loop, ":8081", opts, logger, func(c *muduo.Connection) {
		fmt.Printf("accepted %s, will close after 5s of silence\n", c.RemoteAddr())
		c.SetMessageCallback(func(c *muduo.Connection, in *muduo.Buffer) {
			in.Consume(in.ReadableSize()) // discard; only liveness matters here
		})
		c.SetClosedCallback(func(c *muduo.Connection) {
			fmt.Printf("closed %s (idle timeout or peer hangup)\n", c.RemoteAddr())
		})
	})
	if err != nil {
		log.Fatalf("NewAcceptor: %v", err)
	}

	fmt.Println("idle-timeout server listening on :8081")
	if err := loop.Run(); err != nil {
		log.Fatalf("Run: %v", err)
	}
}
