package redisstore

import "testing"

func TestSendLockKey(t *testing.T) {
	if got := sendLockKey("01J0000000000000000000000A"); got != "chat:send_lock:01J0000000000000000000000A" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestNewToken(t *testing.T) {
	a, err := newToken()
	if err != nil {
		t.Fatal(err)
	}
	b, err := newToken()
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 32 || a == b {
		t.Fatalf("bad tokens %q %q", a, b)
	}
}
