package model

import (
	"fmt"
	"strings"
)

type IdentityKind string

const (
	IdentityNone  IdentityKind = ""
	IdentityUser  IdentityKind = "user"
	IdentityGuest IdentityKind = "guest"
)

// カート操作の持ち主。ログイン済みユーザーかゲストトークンのどちらか。
type Identity struct {
	Kind    IdentityKind
	UserID  int64
	GuestID string
}

func UserIdentity(userID int64) Identity {
	return Identity{Kind: IdentityUser, UserID: userID}
}

func GuestIdentity(guestID string) Identity {
	return Identity{Kind: IdentityGuest, GuestID: guestID}
}

// 認証済みユーザーがいればそちらを優先。次にゲストトークン。どちらも無ければnone。
func ResolveIdentity(userID int64, guestToken string) Identity {
	if userID > 0 {
		return UserIdentity(userID)
	}
	if t := strings.TrimSpace(guestToken); t != "" {
		return GuestIdentity(t)
	}
	return Identity{}
}

func (id Identity) IsNone() bool {
	return id.Kind == IdentityNone
}

func (id Identity) IsUser() bool {
	return id.Kind == IdentityUser
}

func (id Identity) String() string {
	switch id.Kind {
	case IdentityUser:
		return fmt.Sprintf("user:%d", id.UserID)
	case IdentityGuest:
		return "guest:" + id.GuestID
	default:
		return "none"
	}
}
