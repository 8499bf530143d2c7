package widget

import (
	"crypto/rand"
)

const (
	visitorIDKey          = "reflet_visitor_id"
	conversationKeyPrefix = "reflet_conversation_id_"

	visitorIDPrefix = "visitor_"
	visitorIDLength = 16
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ResolveVisitorIdentity returns the stored anonymous visitor id, generating
// and persisting a fresh one the first time. Idempotent for one store.
func ResolveVisitorIdentity(store Store) string {
	if id, ok := store.Get(visitorIDKey); ok && id != "" {
		return id
	}

	id := visitorIDPrefix + randomAlphanumeric(visitorIDLength)
	// A failed write still yields a usable page-lifetime identity.
	_ = store.Set(visitorIDKey, id)
	return id
}

// Conversation ids are namespaced per widget so several widgets sharing one
// store do not collide.
func conversationKey(widgetID string) string {
	return conversationKeyPrefix + widgetID
}

func resolveStoredConversation(store Store, widgetID string) string {
	id, _ := store.Get(conversationKey(widgetID))
	return id
}

func persistConversation(store Store, widgetID, conversationID string) {
	_ = store.Set(conversationKey(widgetID), conversationID)
}

func randomAlphanumeric(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform source is broken; fall
		// back to a fixed fill rather than panic inside a host program.
		for i := range buf {
			buf[i] = byte(i)
		}
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}
