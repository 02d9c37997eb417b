package keys

import (
	"fmt"
	"strings"
)

// Pair returns the conversation identity for two users regardless of order.
func Pair(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + PairSeparator + b
}

func PadTS(ts int64) string {
	return fmt.Sprintf("%0*d", TSPadWidth, ts)
}

func PadSeq(seq uint64) string {
	return fmt.Sprintf("%0*d", SeqPadWidth, seq)
}

// relationships
func GenRelationshipKey(a, b string) string {
	return fmt.Sprintf(RelationshipKey, Pair(a, b))
}

func GenPendingIndexKey(responder, initiator string) string {
	return fmt.Sprintf(PendingIndexKey, responder, initiator)
}

func GenPendingIndexPrefix(responder string) string {
	return fmt.Sprintf(PendingIndexPrefix, responder)
}

func GenOutgoingIndexKey(initiator, responder string) string {
	return fmt.Sprintf(OutgoingIndexKey, initiator, responder)
}

func GenOutgoingIndexPrefix(initiator string) string {
	return fmt.Sprintf(OutgoingPrefix, initiator)
}

func GenConnIndexKey(user, peer string) string {
	return fmt.Sprintf(ConnIndexKey, user, peer)
}

func GenConnIndexPrefix(user string) string {
	return fmt.Sprintf(ConnIndexPrefix, user)
}

// conversations
func GenConversationMetaKey(pair string) string {
	return fmt.Sprintf(ConversationMetaKey, pair)
}

func GenMessageKey(pair string, sentAt int64, id uint64) string {
	return fmt.Sprintf(MessageKey, pair, PadTS(sentAt), PadSeq(id))
}

func GenMessagePrefix(pair string) string {
	return fmt.Sprintf(MessagePrefix, pair)
}

func GenMessageIDKey(id uint64) string {
	return fmt.Sprintf(MessageIDKey, PadSeq(id))
}

// reactions
func GenReactionKey(id uint64, reactor string) string {
	return fmt.Sprintf(ReactionKey, PadSeq(id), reactor)
}

func GenReactionPrefix(id uint64) string {
	return fmt.Sprintf(ReactionPrefix, PadSeq(id))
}

// unread
func GenUnreadKey(receiver, sender string) string {
	return fmt.Sprintf(UnreadKey, receiver, sender)
}

func GenUnreadPrefix(receiver string) string {
	return fmt.Sprintf(UnreadPrefix, receiver)
}

// IsConversationMeta reports whether key is a conversation meta record.
func IsConversationMeta(key string) bool {
	return strings.HasPrefix(key, ConversationMetaScan) && strings.HasSuffix(key, ConversationMetaSuffix)
}
