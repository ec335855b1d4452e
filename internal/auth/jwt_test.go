package auth

import (
	"testing"
	"time"
)

func TestIssueParseRoundTrip(t *testing.T) {
	pair, err := Issue("550e8400-e29b-41d4-a716-446655440000", "Петров Пётр", RoleModerator, "attendboard", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("empty tokens")
	}

	claims, err := Parse(pair.AccessToken, "test-key", "attendboard")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "550e8400-e29b-41d4-a716-446655440000" || claims.Role != RoleModerator {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	pair, err := Issue("id", "name", RoleTeacher, "attendboard", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := Parse(pair.AccessToken, "wrong-key", "attendboard"); err == nil {
		t.Fatal("wrong key accepted")
	}
	if _, err := Parse(pair.AccessToken, "test-key", "other-issuer"); err == nil {
		t.Fatal("wrong issuer accepted")
	}

	expired, err := Issue("id", "name", RoleTeacher, "attendboard", "test-key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(expired.AccessToken, "test-key", "attendboard"); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestCanSyncSchedule(t *testing.T) {
	if !CanSyncSchedule(RoleAdministrator) || !CanSyncSchedule(RoleModerator) {
		t.Fatal("staff roles must be allowed")
	}
	if CanSyncSchedule(RoleTeacher) || CanSyncSchedule("") || CanSyncSchedule("Студент") {
		t.Fatal("non-staff roles must be denied")
	}
}
