package handler

import (
	"strings"

	"storefront/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// ゲストトークンを受け取るヘッダ
const GuestTokenHeader = "X-Guest-Token"

// ログイン中ならユーザー、そうでなければゲストトークン（ヘッダ→クエリ→ボディの順）。
func resolveIdentity(c echo.Context, bodyGuestID string) model.Identity {
	userID, _ := getUserIDFromContext(c)
	return model.ResolveIdentity(userID, guestToken(c, bodyGuestID))
}

func guestToken(c echo.Context, bodyGuestID string) string {
	if v := strings.TrimSpace(c.Request().Header.Get(GuestTokenHeader)); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.QueryParam("guest_id")); v != "" {
		return v
	}
	return strings.TrimSpace(bodyGuestID)
}
