package types

import (
	"context"
	"testing"
)

func TestWithActor_GetActor(t *testing.T) {
	t.Run("round-trip stores and retrieves actor", func(t *testing.T) {
		actor := Actor{
			ID:   "user-123",
			Name: "Operator One",
			Type: ActorTypeUser,
			Role: RoleOperator,
		}
		ctx := WithActor(context.Background(), actor)
		got, ok := GetActor(ctx)
		if !ok {
			t.Fatal("expected ok to be true, got false")
		}
		if got.ID != actor.ID {
			t.Errorf("ID: got %q, want %q", got.ID, actor.ID)
		}
		if got.Name != actor.Name {
			t.Errorf("Name: got %q, want %q", got.Name, actor.Name)
		}
		if got.Type != actor.Type {
			t.Errorf("Type: got %q, want %q", got.Type, actor.Type)
		}
		if got.Role != actor.Role {
			t.Errorf("Role: got %q, want %q", got.Role, actor.Role)
		}
	})

	t.Run("system actor round-trip", func(t *testing.T) {
		actor := Actor{
			ID:   "system",
			Type: ActorTypeSystem,
		}
		ctx := WithActor(context.Background(), actor)
		got, ok := GetActor(ctx)
		if !ok {
			t.Fatal("expected ok to be true")
		}
		if got.Type != ActorTypeSystem {
			t.Errorf("Type: got %q, want %q", got.Type, ActorTypeSystem)
		}
	})

	t.Run("returns false when no actor in context", func(t *testing.T) {
		_, ok := GetActor(context.Background())
		if ok {
			t.Error("expected ok to be false for empty context")
		}
	})

	t.Run("returns zero-value actor when missing", func(t *testing.T) {
		actor, ok := GetActor(context.Background())
		if ok {
			t.Error("expected ok to be false")
		}
		if actor.ID != "" {
			t.Errorf("expected empty ID, got %q", actor.ID)
		}
		if actor.Type != "" {
			t.Errorf("expected empty Type, got %q", actor.Type)
		}
	})
}

func TestActorRoleHasAtLeast(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		role  UserRole
		want  bool
	}{
		{"admin meets admin", Actor{Type: ActorTypeUser, Role: RoleAdmin}, RoleAdmin, true},
		{"admin meets operator", Actor{Type: ActorTypeUser, Role: RoleAdmin}, RoleOperator, true},
		{"operator meets operator", Actor{Type: ActorTypeUser, Role: RoleOperator}, RoleOperator, true},
		{"operator below admin", Actor{Type: ActorTypeUser, Role: RoleOperator}, RoleAdmin, false},
		{"unknown role below operator", Actor{Type: ActorTypeUser, Role: "guest"}, RoleOperator, false},
		{"system bypasses check", Actor{Type: ActorTypeSystem}, RoleAdmin, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.actor.RoleHasAtLeast(tt.role); got != tt.want {
				t.Errorf("RoleHasAtLeast(%q) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestWithRequestID_GetRequestID(t *testing.T) {
	t.Run("round-trip stores and retrieves request ID", func(t *testing.T) {
		id := "req-abc-123-def-456"
		ctx := WithRequestID(context.Background(), id)
		got := GetRequestID(ctx)
		if got != id {
			t.Errorf("got %q, want %q", got, id)
		}
	})

	t.Run("returns empty string when no request ID in context", func(t *testing.T) {
		got := GetRequestID(context.Background())
		if got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("handles empty request ID", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "")
		got := GetRequestID(ctx)
		if got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

func TestContextKeys_ArePrivate(t *testing.T) {
	// Verify that using a plain string key does not collide with the typed contextKey.
	// This ensures the unexported contextKey type provides collision protection.
	ctx := context.WithValue(context.Background(), "actor", "not-an-actor")
	_, ok := GetActor(ctx)
	if ok {
		t.Error("expected typed context key to prevent collision with plain string key")
	}

	ctx = context.WithValue(context.Background(), "request_id", "should-not-match")
	got := GetRequestID(ctx)
	if got != "" {
		t.Errorf("expected empty string due to key type mismatch, got %q", got)
	}
}

func TestContextValues_DoNotInterfere(t *testing.T) {
	// Verify that setting multiple context values does not interfere with each other.
	actor := Actor{
		ID:   "user-1",
		Type: ActorTypeUser,
		Role: RoleAdmin,
	}
	reqID := "req-xyz"

	ctx := context.Background()
	ctx = WithActor(ctx, actor)
	ctx = WithRequestID(ctx, reqID)

	// Both values should be independently retrievable.
	gotActor, ok := GetActor(ctx)
	if !ok {
		t.Fatal("expected actor to be present")
	}
	if gotActor.ID != "user-1" {
		t.Errorf("actor ID: got %q, want %q", gotActor.ID, "user-1")
	}

	gotReqID := GetRequestID(ctx)
	if gotReqID != reqID {
		t.Errorf("request ID: got %q, want %q", gotReqID, reqID)
	}
}

func TestActorType_Constants(t *testing.T) {
	// Verify the exact string values stored in audit records.
	if ActorTypeUser != "user" {
		t.Errorf("ActorTypeUser: got %q, want %q", ActorTypeUser, "user")
	}
	if ActorTypeSystem != "system" {
		t.Errorf("ActorTypeSystem: got %q, want %q", ActorTypeSystem, "system")
	}
}
