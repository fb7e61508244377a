// Package transport carries landmark payloads out of the process: UDP
// datagrams for the renderer and MQTT for everything else.
package transport

import (
	"fmt"
	"net"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/metrics"
)

// Sink accepts one payload and returns without waiting for a receiver.
type Sink interface {
	Send(payload string) error
}

// UDPSender writes each payload as one datagram to a fixed address.
// Nothing is retried; a lost datagram stays lost.
type UDPSender struct {
	conn *net.UDPConn
	dst  *net.UDPAddr
}

// NewUDPSender opens an unconnected local socket aimed at target.
func NewUDPSender(target string) (*UDPSender, error) {
	dst, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target, err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("open udp socket: %w", err)
	}
	klog.Infof("udp: sending landmarks to %s", dst)
	return &UDPSender{conn: conn, dst: dst}, nil
}

// Send writes payload as a single datagram.
func (u *UDPSender) Send(payload string) error {
	if _, err := u.conn.WriteToUDP([]byte(payload), u.dst); err != nil {
		metrics.DatagramErrors.Inc()
		return err
	}
	metrics.DatagramsSent.Inc()
	return nil
}

// Close releases the socket.
func (u *UDPSender) Close() error {
	return u.conn.Close()
}
