// Package responder implements a multicast DNS responder: it answers mDNS
// queries for the services described by a zone, authoritatively and without
// probing.
package responder

import (
	"context"
	"errors"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/jmalloc/mdnssd/transport"
	"github.com/jmalloc/mdnssd/zone"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRunning is returned by Start when the responder is already
// running.
var ErrAlreadyRunning = errors.New("responder: already running")

// Responder answers mDNS queries for a single zone. Its lifecycle is
// Stopped -> Running -> Stopped; Start and Stop may be called repeatedly, but
// Start while running is an error.
type Responder struct {
	zone    zone.Zone
	config  transport.Config
	sockets *transport.SocketSet

	m       sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New returns a responder that answers queries from z.
func New(z zone.Zone, options ...Option) (*Responder, error) {
	r := &Responder{zone: z}

	for _, opt := range options {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Start binds the socket set and begins answering queries. It returns
// ErrAlreadyRunning if the responder is already running, or
// transport.ErrNoUsableSocket if neither address family produced a working
// socket.
func (r *Responder) Start() error {
	r.m.Lock()
	defer r.m.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}

	sockets := r.sockets
	if sockets == nil {
		var err error
		sockets, err = transport.NewSocketSet(r.config, false)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	r.running = true
	r.cancel = cancel
	r.done = done

	go func() {
		defer close(done)
		r.run(ctx, sockets)
	}()

	return nil
}

// Stop cancels all reads, closes the sockets, and blocks until the read
// loops have exited. It is a no-op on a stopped responder.
func (r *Responder) Stop() {
	r.m.Lock()
	defer r.m.Unlock()

	if !r.running {
		return
	}

	r.cancel()
	<-r.done
	r.running = false
}

func (r *Responder) run(ctx context.Context, sockets *transport.SocketSet) {
	g, ctx := errgroup.WithContext(ctx)

	for _, s := range sockets.Multicast {
		s := s
		g.Go(func() error {
			return r.receive(ctx, s)
		})
	}

	_ = g.Wait()
	_ = sockets.Close()
}

// receive reads datagrams from s until ctx is canceled, answering each one.
func (r *Responder) receive(ctx context.Context, s transport.Socket) error {
	go func() {
		<-ctx.Done()
		_ = s.Close() // break out of s.Read() when the context is canceled
	}()

	for {
		in, err := s.Read()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return err
		}

		r.respond(in)
	}
}

func (r *Responder) logger() logging.Logger {
	if r.config.Logger == nil {
		return logging.DefaultLogger
	}
	return r.config.Logger
}
