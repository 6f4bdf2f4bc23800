package chat

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"
)

func TestTCPLineConnReadsLines(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	lc := NewTCPLineConn(server, 1024)
	defer lc.Close()

	go func() {
		_, _ = client.Write([]byte("hello\r\nworld\n"))
	}()

	for _, want := range []string{"hello", "world"} {
		line, err := lc.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine() error: %v", err)
		}
		if line != want {
			t.Fatalf("ReadLine() = %q, want %q", line, want)
		}
	}
}

func TestTCPLineConnWriteAppendsNewline(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	lc := NewTCPLineConn(server, 1024)
	defer lc.Close()

	go func() {
		_ = lc.WriteLine("hello")
	}()

	buf := make([]byte, 16)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got := string(buf[:n]); got != "hello\n" {
		t.Fatalf("wire bytes = %q, want %q", got, "hello\n")
	}
}

// TestTCPLineConnRejectsOverlongLine verifies a frame beyond the limit
// surfaces as the protocol-violation error.
func TestTCPLineConnRejectsOverlongLine(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	lc := NewTCPLineConn(server, 16)
	defer lc.Close()

	go func() {
		_, _ = client.Write([]byte(strings.Repeat("a", 64) + "\n"))
	}()

	if _, err := lc.ReadLine(); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("ReadLine() error = %v, want ErrLineTooLong", err)
	}
}

func TestTCPLineConnReportsEOF(t *testing.T) {
	client, server := net.Pipe()

	lc := NewTCPLineConn(server, 1024)
	defer lc.Close()

	_ = client.Close()

	if _, err := lc.ReadLine(); !errors.Is(err, io.EOF) && !isExpectedDisconnect(err) {
		t.Fatalf("ReadLine() after close = %v, want a disconnect error", err)
	}
}

func TestIsExpectedDisconnect(t *testing.T) {
	for _, err := range []error{io.EOF, net.ErrClosed, errors.New("read: connection reset by peer")} {
		if !isExpectedDisconnect(err) {
			t.Fatalf("isExpectedDisconnect(%v) = false, want true", err)
		}
	}
	if isExpectedDisconnect(errors.New("disk on fire")) {
		t.Fatal("unexpected error classified as routine disconnect")
	}
	if isExpectedDisconnect(nil) {
		t.Fatal("nil error classified as disconnect")
	}
}
