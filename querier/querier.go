// Package querier implements one-shot mDNS service discovery: it issues a
// PTR query for a service type and correlates the resource records that
// arrive across datagrams and interfaces into complete ServiceEntry values.
package querier

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/jmalloc/mdnssd/internal/wire"
	"github.com/jmalloc/mdnssd/transport"
	"golang.org/x/sync/errgroup"
)

// ErrSendFailed is returned when the initial query could not be sent on any
// socket of either address family.
var ErrSendFailed = errors.New("querier: unable to send query on any socket")

// Params configures a single Query operation.
type Params struct {
	// Service is the DNS-SD service type to discover, e.g. "_http._tcp".
	Service string

	// Domain is the domain to discover within. Defaults to "local." when
	// empty.
	Domain string

	// Timeout bounds the whole operation. Zero means no internal timer; the
	// operation then runs until ctx is canceled.
	Timeout time.Duration

	// Entries receives each discovered entry, at most once per instance
	// name. The channel is not closed by Query; the caller owns it.
	Entries chan<- *ServiceEntry

	// Sockets supplies a pre-constructed socket set. When nil, Query binds
	// its own from Config and closes it on completion.
	Sockets *transport.SocketSet

	// Config carries the socket configuration, including
	// WantUnicastResponse, interface selection, and family toggles.
	transport.Config
}

func (p Params) domain() string {
	if p.Domain == "" {
		return "local."
	}
	return p.Domain
}

// serviceAddr returns "<service>.<domain>." with a single trailing dot.
func (p Params) serviceAddr() string {
	return fold(fmt.Sprintf("%s.%s", p.Service, p.domain()))
}

func (p Params) logger() logging.Logger {
	if p.Logger == nil {
		return logging.DefaultLogger
	}
	return p.Logger
}

// Query sends a PTR query for the service described by p and streams the
// entries that can be assembled from the responses to p.Entries until the
// timeout elapses or ctx is canceled. Discovering nothing is not an error;
// the operation then simply emits nothing.
func Query(ctx context.Context, p Params) error {
	sockets := p.Sockets
	if sockets == nil {
		var err error
		sockets, err = transport.NewSocketSet(p.Config, true)
		if err != nil {
			return err
		}
	}
	defer sockets.Close()

	query, err := newQuery(p)
	if err != nil {
		return err
	}

	if err := send(sockets, query, p.logger()); err != nil {
		return err
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	return correlate(ctx, sockets, p)
}

// Lookup is a convenience wrapper around Query that collects the discovered
// entries into a slice.
func Lookup(ctx context.Context, p Params) ([]*ServiceEntry, error) {
	entries := make(chan *ServiceEntry, 16)
	p.Entries = entries

	var (
		out []*ServiceEntry
		wg  sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range entries {
			out = append(out, e)
		}
	}()

	err := Query(ctx, p)
	close(entries)
	wg.Wait()

	return out, err
}

// newQuery builds the initial PTR query message.
func newQuery(p Params) (*wire.Message, error) {
	name, err := wire.ParseName(p.serviceAddr())
	if err != nil {
		return nil, err
	}

	q := wire.Question{
		Name:  name,
		Type:  wire.TypePTR,
		Class: wire.ClassINET,
	}
	q = q.WithUnicast(p.WantUnicastResponse)

	return &wire.Message{
		Header:   wire.Header{ID: uint16(rand.Intn(1 << 16))},
		Question: []wire.Question{q},
	}, nil
}

// send emits the packed query on every socket in the set: once per joined
// interface on each multicast socket, and once on each unicast socket (so
// that unicast replies return to its ephemeral port). It fails only when no
// send succeeded at all.
func send(sockets *transport.SocketSet, m *wire.Message, logger logging.Logger) error {
	buf, err := m.Pack()
	if err != nil {
		return err
	}

	sent := 0

	for _, s := range sockets.Multicast {
		ifaces := s.Joined()
		if len(ifaces) == 0 {
			if write(s, 0, buf) {
				sent++
			}
			continue
		}
		for _, iface := range ifaces {
			if write(s, iface.Index, buf) {
				sent++
			}
		}
	}

	for _, s := range sockets.Unicast {
		if write(s, 0, buf) {
			sent++
		}
	}

	if sent == 0 {
		return ErrSendFailed
	}

	logging.Debug(logger, "sent mDNS query on %d socket/interface pairs", sent)
	return nil
}

func write(s transport.Socket, ifIndex int, buf []byte) bool {
	err := s.Write(&transport.OutboundPacket{
		Destination: transport.Endpoint{
			InterfaceIndex: ifIndex,
			Address:        s.Group(),
		},
		Data: buf,
	})
	return err == nil
}

// correlate reads from every socket in parallel, folding each datagram into
// the correlation map in a single logical order and emitting entries as they
// become complete.
func correlate(ctx context.Context, sockets *transport.SocketSet, p Params) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	packets := make(chan *transport.InboundPacket)

	g, gctx := errgroup.WithContext(ctx)

	for _, s := range sockets.Sockets() {
		s := s
		g.Go(func() error {
			return receive(gctx, s, packets)
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	c := newCorrelator(p.serviceAddr())

	for {
		select {
		case <-ctx.Done():
			cancel()
			<-done
			return nil

		case in := <-packets:
			foldPacket(ctx, c, in, p)
		}
	}
}

// foldPacket decodes one datagram and pushes any newly-completed entries
// downstream. Malformed datagrams and messages carrying no answers are
// silently dropped.
func foldPacket(ctx context.Context, c *correlator, in *transport.InboundPacket, p Params) {
	defer in.Close()

	m, err := in.Message()
	if err != nil {
		logging.Debug(p.logger(), "dropping malformed mDNS message: %s", err)
		return
	}

	if len(m.Answer) == 0 && len(m.Additional) == 0 {
		return
	}

	for _, e := range c.Fold(m) {
		select {
		case <-ctx.Done():
			return
		case p.Entries <- e:
		}
	}
}

// receive pipes datagrams from s to packets until ctx is canceled.
func receive(ctx context.Context, s transport.Socket, packets chan<- *transport.InboundPacket) error {
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

		select {
		case <-ctx.Done():
			in.Close()
			return ctx.Err()
		case packets <- in:
		}
	}
}
