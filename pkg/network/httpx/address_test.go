package httpx

import (
	"net"
	"testing"
)

type testListener struct {
	addr net.TCPAddr
}

func (tl testListener) Accept() (net.Conn, error) { return nil, nil }
func (tl testListener) Close() error              { return nil }
func (tl testListener) Addr() net.Addr            { return &tl.addr }

func newTCP(port int) Listener { return Listener{testListener{addr: net.TCPAddr{Port: port}}} }

func TestBuildAddress(t *testing.T) {
	tests := []struct {
		addr string
		ls   Listener
		want string
	}{
		{addr: "", want: "localhost"},
		{addr: ":", ls: newTCP(0), want: "localhost"},
		{addr: "", ls: newTCP(393), want: "localhost:393"},
		{addr: ":8000", ls: newTCP(8000), want: "localhost:8000"},
		{addr: ":8000", ls: newTCP(8001), want: "localhost:8001"},
		{addr: "meet.org:8000", ls: newTCP(8001), want: "meet.org:8001"},
		{addr: ":443", ls: newTCP(443), want: "localhost"},
	}
	for _, tt := range tests {
		if got := buildAddress(tt.addr, tt.ls); got != tt.want {
			t.Errorf("buildAddress(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		in   Address
		host string
		port int
	}{
		{in: "", host: "", port: 0},
		{in: ":9000", host: "", port: 9000},
		{in: "meet.org:9999", host: "meet.org", port: 9999},
		{in: "meet.org:99a9", host: "meet.org", port: 0},
	}
	for _, tt := range tests {
		host, port := tt.in.SplitHostPort()
		if host != tt.host || port != tt.port {
			t.Errorf("%q -> %q %v, want %q %v", tt.in, host, port, tt.host, tt.port)
		}
	}
}

func TestExtractHost(t *testing.T) {
	for in, want := range map[string]string{"localhost:8000": "localhost", "meet.org": "meet.org", "[::1]": "[::1]"} {
		if got := extractHost(in); got != want {
			t.Errorf("extractHost(%q) = %v, want %v", in, got, want)
		}
	}
}
