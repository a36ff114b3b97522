package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/harvestlink/market-backend/pkg/logger"
)

const actorPhoneHeader = "X-Actor-Phone"

// ActorPhone lifts the caller's phone from X-Actor-Phone into the request context. The value is
// not validated here; the order service rejects malformed or unknown phones.
func ActorPhone(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			phone := strings.TrimSpace(r.Header.Get(actorPhoneHeader))
			ctx := WithActorPhone(r.Context(), phone)
			if logg != nil && phone != "" {
				ctx = logg.WithField(ctx, "actor_phone_hash", hashValue(phone))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
