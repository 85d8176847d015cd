/*
Package loop implements the shared cooperative runtime that executes all
asynchronous tasks for a dispatcher.

A Loop owns exactly one hosting goroutine. Jobs submitted from any
goroutine are serialized onto it, so cooperative work never runs in true
parallel with other cooperative work; throughput is bounded by how often
jobs yield (check their context), not by thread count.

	l := loop.New()
	go l.Run()
	<-l.Ready()

	fut, err := l.Submit(func(ctx context.Context) (interface{}, error) {
		return fetch(ctx, url)
	})
	if err != nil {
		return err
	}
	res, err := fut.Wait(ctx)

Shutdown is requested from any goroutine but performed by the hosting
goroutine itself, which keeps all loop state single-writer:

	l.Shutdown(context.Background())
*/
package loop
