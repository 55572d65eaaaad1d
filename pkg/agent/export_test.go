package agent

import "github.com/jorgeantonio/flutter-architect/pkg/conversation"

// History returns a copy of the committed turns of a raw session. It
// returns nil for sessions of other providers.
func History(sess Session) []conversation.Turn {
	ps, ok := sess.(*providerSession)
	if !ok {
		return nil
	}
	raw, ok := ps.engine.(*rawChatSession)
	if !ok {
		return nil
	}
	return raw.history.Turns()
}
