package keys

const (
	// notation dictionary for key formats:
	// rel = relationship between two users
	// idx = index
	// c   = conversation
	// m   = message
	// mid = message id index
	// r   = reaction
	// u   = unread counter
	// All segments are separated by ":"; usernames cannot contain ":" or "|".
	// <pair> = <userA>|<userB> with userA < userB

	// relationships
	RelationshipKey    = "rel:%s"             // rel:<pair>
	RelationshipPrefix = "rel:"               // scan all relationships
	PendingIndexKey    = "idx:pending:%s:%s"  // idx:pending:<responder>:<initiator>
	PendingIndexPrefix = "idx:pending:%s:"    // idx:pending:<responder>:
	OutgoingIndexKey   = "idx:outgoing:%s:%s" // idx:outgoing:<initiator>:<responder>
	OutgoingPrefix     = "idx:outgoing:%s:"   // idx:outgoing:<initiator>:
	ConnIndexKey       = "idx:conn:%s:%s"     // idx:conn:<user>:<peer>
	ConnIndexPrefix    = "idx:conn:%s:"       // idx:conn:<user>:

	// conversations
	ConversationMetaKey    = "c:%s:meta"    // c:<pair>:meta
	ConversationMetaScan   = "c:"           // scan for metas
	MessageKey             = "c:%s:m:%s:%s" // c:<pair>:m:<sentAt>:<id>
	MessagePrefix          = "c:%s:m:"      // c:<pair>:m:
	MessageIDKey           = "mid:%s"       // mid:<id> -> message key
	MessageIDPrefix        = "mid:"         // scan ids
	ReactionKey            = "r:%s:%s"      // r:<id>:<reactor>
	ReactionPrefix         = "r:%s:"        // r:<id>:
	UnreadKey              = "u:%s:%s"      // u:<receiver>:<sender>
	UnreadPrefix           = "u:%s:"        // u:<receiver>:
	PairSeparator          = "|"
	ConversationMetaSuffix = ":meta"

	// padding widths (fixed for lexicographic ordering)
	TSPadWidth  = 20 // e.g. %020d
	SeqPadWidth = 20 // ids are global, so they get the full uint64 width

	// system keys
	SystemVersionKey  = "system:version"
	SystemSeqFloorKey = "system:seq_floor"
)
