package model

import (
	"testing"
	"time"
)

func TestSession_IsExpired(t *testing.T) {
	live := &Session{ExpiresAt: time.Now().Add(time.Hour)}
	if live.IsExpired() {
		t.Error("session expiring in an hour reported expired")
	}
	dead := &Session{ExpiresAt: time.Now().Add(-time.Second)}
	if !dead.IsExpired() {
		t.Error("session expired a second ago reported live")
	}
}
