package domain

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// BlockKind tags a content block variant. Text is the only kind today;
// the tag exists so new kinds can be added without breaking consumers.
type BlockKind string

const BlockText BlockKind = "text"

// Block is a single tagged content block within a message.
type Block struct {
	Kind BlockKind
	Text string
}

// Message is one turn of conversation history. Messages are immutable once
// appended; compaction may remove them but never edits them in place.
type Message struct {
	Role    Role
	Content []Block
}

// NewTextMessage builds a message with a single text block.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Content: []Block{{Kind: BlockText, Text: text}}}
}

// DocumentChunk is a self-contained unit of profile text with metadata,
// the unit of retrieval indexing.
type DocumentChunk struct {
	Text      string
	Type      string // "personal", "experience", "project", "skills"
	Title     string
	Timeframe string
	Tags      []string
}

// VectorRecord pairs a chunk payload with its embedding for indexing.
// IDs are assigned from chunk order, so re-indexing the same document
// overwrites rather than duplicates.
type VectorRecord struct {
	ID      uint64
	Vector  []float64
	Payload DocumentChunk
}

// SearchResult is a matching chunk with its cosine similarity score.
type SearchResult struct {
	Chunk DocumentChunk
	Score float64
}
