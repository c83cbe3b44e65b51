package connectivity

import (
	"context"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/slok/tasksync/internal/log"
)

// NetlinkSource reports online while any non loopback link is operationally up.
// Linux only.
type NetlinkSource struct {
	logger log.Logger
}

// NewPlatformSource returns the connectivity source of the running platform.
func NewPlatformSource(logger log.Logger) (Source, error) {
	if logger == nil {
		logger = log.Noop
	}

	// Check we can talk netlink before returning the source.
	if _, err := netlink.LinkList(); err != nil {
		return nil, fmt.Errorf("could not list links: %w", err)
	}

	return &NetlinkSource{
		logger: logger.WithValues(log.Kv{"svc": "connectivity.NetlinkSource"}),
	}, nil
}

// Online returns true if any non loopback link is up.
func (s *NetlinkSource) Online() bool {
	links, err := netlink.LinkList()
	if err != nil {
		s.logger.Warningf("Could not list links: %s", err)
		return false
	}

	for _, l := range links {
		if linkUp(l.Attrs()) {
			return true
		}
	}

	return false
}

// Watch subscribes to link updates and reports the transitions.
func (s *NetlinkSource) Watch(ctx context.Context, changes chan<- bool) error {
	updates := make(chan netlink.LinkUpdate)
	done := make(chan struct{})
	defer close(done)

	if err := netlink.LinkSubscribe(updates, done); err != nil {
		return fmt.Errorf("could not subscribe to link updates: %w", err)
	}

	last := s.Online()
	for {
		select {
		case <-ctx.Done():
			return nil

		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("link updates subscription closed")
			}

			online := s.Online()
			if online == last {
				continue
			}
			last = online
			s.logger.Debugf("Link %s changed (%s), online: %t", update.Attrs().Name, update.Attrs().OperState, online)

			select {
			case changes <- online:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func linkUp(attrs *netlink.LinkAttrs) bool {
	if attrs == nil || attrs.Flags&net.FlagLoopback != 0 {
		return false
	}

	switch attrs.OperState {
	case netlink.OperUp:
		return true
	case netlink.OperUnknown:
		// Tunnels (wireguard, tun) don't report the operational state.
		return attrs.Flags&net.FlagUp != 0 && attrs.Flags&net.FlagRunning != 0
	}

	return false
}
