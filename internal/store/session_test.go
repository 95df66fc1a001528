package store

import "testing"

func TestSessionLifecycle(t *testing.T) {
	db, uid := setupTestDB(t)
	ss := NewSessionStore(db)

	sess, err := ss.Create(uid)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.UserID != uid {
		t.Fatalf("got %+v, want session for user %d", got, uid)
	}

	if missing, _ := ss.GetByToken("bogus"); missing != nil {
		t.Error("expected nil for unknown token")
	}

	if err := ss.Delete(sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gone, _ := ss.GetByToken(sess.Token); gone != nil {
		t.Error("session still resolvable after delete")
	}
}
