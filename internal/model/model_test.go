package model

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRole_IsValid(t *testing.T) {
	testCases := []struct {
		role Role
		want bool
	}{
		{RoleTenant, true},
		{RoleHost, true},
		{RoleAdmin, true},
		{RoleMealProvider, true},
		{Role("superadmin"), false},
		{Role(""), false},
		{Role("Tenant"), false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.role), func(t *testing.T) {
			if got := tc.role.IsValid(); got != tc.want {
				t.Errorf("Role(%q).IsValid() = %v, want %v", tc.role, got, tc.want)
			}
		})
	}
}

func TestUser_JSONOmitsPasswordHash(t *testing.T) {
	user := User{
		ID:           "01HXYZ",
		Name:         "John Doe",
		Email:        "john@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		Role:         RoleTenant,
	}

	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}

	if strings.Contains(string(data), "argon2id") || strings.Contains(string(data), "password") {
		t.Errorf("user JSON leaks password material: %s", data)
	}
	if !strings.Contains(string(data), `"role":"tenant"`) {
		t.Errorf("user JSON missing role: %s", data)
	}
}

func TestLoginUpdate_Apply(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	user := &User{Name: "John", Email: "john@example.com", UserAgent: "old"}

	LoginUpdate{LastLoginIP: "10.0.0.1", LastLoginAt: at, UserAgent: "new"}.Apply(user)

	if user.LastLoginIP == nil || *user.LastLoginIP != "10.0.0.1" {
		t.Errorf("LastLoginIP = %v, want 10.0.0.1", user.LastLoginIP)
	}
	if user.LastLoginAt == nil || !user.LastLoginAt.Equal(at) {
		t.Errorf("LastLoginAt = %v, want %v", user.LastLoginAt, at)
	}
	if user.UserAgent != "new" {
		t.Errorf("UserAgent = %q, want new", user.UserAgent)
	}
	if user.Name != "John" || user.Email != "john@example.com" {
		t.Error("login update must not touch non-login fields")
	}
}

func TestAuthToken_Can(t *testing.T) {
	testCases := []struct {
		name      string
		abilities []string
		check     string
		want      bool
	}{
		{"wildcard", []string{AbilityAll}, "profile:read", true},
		{"exact", []string{"profile:read"}, "profile:read", true},
		{"missing", []string{"profile:read"}, "listings:write", false},
		{"empty", nil, "profile:read", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token := &AuthToken{Abilities: tc.abilities}
			if got := token.Can(tc.check); got != tc.want {
				t.Errorf("Can(%s) = %v, want %v", tc.check, got, tc.want)
			}
		})
	}
}

func TestActivityProperties_JSON(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	props := ActivityProperties{
		IP:        "127.0.0.1",
		Agent:     "curl/8.0",
		Timestamp: &ts,
		Extra:     map[string]string{"device": "mobile"},
	}

	data, err := json.Marshal(props)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("properties should encode as a flat object: %v", err)
	}
	if flat["ip"] != "127.0.0.1" || flat["agent"] != "curl/8.0" || flat["device"] != "mobile" {
		t.Errorf("unexpected flat encoding: %v", flat)
	}
	if flat["timestamp"] != "2026-03-04T05:06:07Z" {
		t.Errorf("timestamp = %q", flat["timestamp"])
	}

	var decoded ActivityProperties
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.IP != props.IP || decoded.Agent != props.Agent {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Timestamp == nil || !decoded.Timestamp.Equal(ts) {
		t.Errorf("decoded timestamp = %v", decoded.Timestamp)
	}
	if decoded.Extra["device"] != "mobile" {
		t.Errorf("extra keys should survive decoding, got %v", decoded.Extra)
	}
}

func TestActivityProperties_NoTimestamp(t *testing.T) {
	data, err := json.Marshal(ActivityProperties{IP: "1.2.3.4", Agent: "ua"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "timestamp") {
		t.Errorf("timestamp should be omitted when unset: %s", data)
	}
}

func TestRequestContext_ConcurrentUserID(t *testing.T) {
	rc := &RequestContext{IP: "127.0.0.1"}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			rc.SetUserID("user-1")
		}()
		go func() {
			defer wg.Done()
			_ = rc.UserID()
		}()
	}
	wg.Wait()

	if rc.UserID() != "user-1" {
		t.Errorf("UserID() = %q, want user-1", rc.UserID())
	}
}
