// Command crossthread demonstrates RunInLoop's cross-goroutine path: a
// background goroutine outside any EventLoop increments a counter once a
// second by handing a closure to the loop via RunInLoop, the same
// mechanism Connection.Send and ConnectPool.keepNum rely on to reach a
// loop they don't own.
package main

import (
	"fmt"
	"log"
	"time"

	muduo "github.com/littleblus/my-muduo"
)

func main() {
	opts := muduo.NewOptions()
	logger, err := muduo.NewLogger("")
	if err != nil {
		log.Fatalf("NewLogger: %v", err)
	}

	loop, err := muduo.NewEventLoop(opts, logger, nil)
	if err != nil {
		log.Fatalf("NewEventLoop: %v", err)
	}

	counter := 0
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			// counter is only ever touched on the loop goroutine from
			// here on; this goroutine never reads or writes it directly.
			loop.RunInLoop(func() {
				counter++
				fmt.Println("counter:", counter)
				if counter >= 5 {
					loop.Stop()
				}
			})
		}
	}()

	fmt.Println("ticking for 5 seconds via RunInLoop from a non-loop goroutine")
	if err := loop.Run(); err != nil {
		log.Fatalf("Run: %v", err)
	}
	loop.Close()
}
