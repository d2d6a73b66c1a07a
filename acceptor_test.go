package muduo

import "testing"

func TestParseSockaddrHostPort(t *testing.T) {
	sa, err := parseSockaddr("127.0.0.1:8080")
	if err != nil {
		t.Fatalf("parseSockaddr: %v", err)
	}
	if sa.Port != 8080 {
		t.Fatalf("port = %d, want 8080", sa.Port)
	}
	want := [4]byte{127, 0, 0, 1}
	if sa.Addr != want {
		t.Fatalf("addr = %v, want %v", sa.Addr, want)
	}
}

func TestParseSockaddrEmptyHostMeansAny(t *testing.T) {
	sa, err := parseSockaddr(":9090")
	if err != nil {
		t.Fatalf("parseSockaddr: %v", err)
	}
	want := [4]byte{0, 0, 0, 0}
	if sa.Addr != want {
		t.Fatalf("addr = %v, want 0.0.0.0", sa.Addr)
	}
}

func TestParseSockaddrRejectsMalformed(t *testing.T) {
	cases := []string{"", "noport", "host:notanumber", "host:port:extra", "host:0", "host:70000"}
	for _, c := range cases {
		if _, err := parseSockaddr(c); err != ErrAddrInvalid {
			t.Errorf("parseSockaddr(%q) = %v, want ErrAddrInvalid", c, err)
		}
	}
}

func TestNewAcceptorRejectsNilLoop(t *testing.T) {
	opts := setOptions()
	logger := newTestLogger(t)
	if _, err := NewAcceptor(nil, ":18097", opts, logger, nil); err != ErrInvalidParam {
		t.Fatalf("NewAcceptor(nil, ...) = %v, want ErrInvalidParam", err)
	}
}

func TestAcceptorAcceptsAndEstablishesConnection(t *testing.T) {
	loop, server, _, stop := acceptDial(t, "127.0.0.1:18090")
	defer stop()

	if server == nil {
		t.Fatal("acceptor never handed off a Connection")
	}
	if server.State() != StateConnected {
		t.Fatalf("server state = %v, want connected", server.State())
	}
	_ = loop
}
