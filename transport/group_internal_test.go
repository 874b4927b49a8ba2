package transport

import (
	"errors"
	"net"

	"github.com/dogmatiq/dodeca/logging"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakePacketConn records join attempts and fails those named in failures.
type fakePacketConn struct {
	failures map[string]error
	joined   []string
}

func (c *fakePacketConn) JoinGroup(iface *net.Interface, _ net.Addr) error {
	if err, ok := c.failures[iface.Name]; ok {
		return err
	}
	c.joined = append(c.joined, iface.Name)
	return nil
}

var _ = Describe("joinGroup", func() {
	ifaces := []net.Interface{
		{Index: 1, Name: "eth0"},
		{Index: 2, Name: "eth1"},
	}

	It("joins the group on every interface", func() {
		pc := &fakePacketConn{}

		joined, err := joinGroup(pc, IPv4Group, ifaces, logging.SilentLogger)
		Expect(err).NotTo(HaveOccurred())
		Expect(joined).To(HaveLen(2))
		Expect(pc.joined).To(Equal([]string{"eth0", "eth1"}))
	})

	It("skips interfaces that fail to join without failing the whole set", func() {
		pc := &fakePacketConn{
			failures: map[string]error{"eth0": errors.New("no multicast")},
		}

		joined, err := joinGroup(pc, IPv4Group, ifaces, logging.SilentLogger)
		Expect(err).NotTo(HaveOccurred())
		Expect(joined).To(HaveLen(1))
		Expect(joined[0].Name).To(Equal("eth1"))
	})

	It("returns ErrMulticastJoinFailed only when no interface can join", func() {
		pc := &fakePacketConn{
			failures: map[string]error{},
		}
		for _, i := range ifaces {
			pc.failures[i.Name] = errors.New("no multicast")
		}

		// The final fallback attempt against the OS default interface also
		// fails: the default interface is added to the fake's failures, or,
		// when it cannot be determined, joinGroup makes no fallback join.
		def, err := defaultInterface()
		if err == nil {
			pc.failures[def.Name] = errors.New("no multicast")
		}

		_, err = joinGroup(pc, IPv4Group, ifaces, logging.SilentLogger)
		Expect(err).To(MatchError(ErrMulticastJoinFailed))
	})
})

var _ = Describe("NewSocketSet", func() {
	It("rejects a configuration with both families disabled", func() {
		_, err := NewSocketSet(Config{
			DisableIPv4: true,
			DisableIPv6: true,
			Logger:      logging.SilentLogger,
		}, false)
		Expect(err).To(MatchError(ErrFamiliesDisabled))
	})
})
