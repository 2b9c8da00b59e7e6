package emailblock

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

type BlockType string

const (
	TypeHeader   BlockType = "header"
	TypeHero     BlockType = "hero"
	TypeText     BlockType = "text"
	TypeImage    BlockType = "image"
	TypeButton   BlockType = "button"
	TypeDivider  BlockType = "divider"
	TypeFooter   BlockType = "footer"
	TypeFeatures BlockType = "features"
)

// Types lists the known block types in their usual top-to-bottom order.
var Types = []BlockType{TypeHeader, TypeHero, TypeText, TypeImage, TypeButton, TypeDivider, TypeFeatures, TypeFooter}

func (t BlockType) Known() bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

var ErrMissingBlockType = errors.New("emailblock: missing blockType")

type Block struct {
	ID        string
	BlockType BlockType
	OrderID   int
	Styles    Styles
	Content   Content
}

type blockJSON struct {
	ID        string          `json:"id"`
	BlockType BlockType       `json:"blockType"`
	OrderID   int             `json:"orderId"`
	Styles    Styles          `json:"styles"`
	Content   json.RawMessage `json:"content"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if b.Content != nil {
		data, err := json.Marshal(b.Content)
		if err != nil {
			return nil, err
		}
		raw = data
	} else {
		raw = json.RawMessage("{}")
	}
	return json.Marshal(blockJSON{
		ID:        b.ID,
		BlockType: b.BlockType,
		OrderID:   b.OrderID,
		Styles:    b.Styles,
		Content:   raw,
	})
}

// UnmarshalJSON decodes the content variant selected by blockType. Unknown
// types are kept as UnknownContent.
func (b *Block) UnmarshalJSON(data []byte) error {
	var in blockJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.BlockType == "" {
		return ErrMissingBlockType
	}

	b.ID = in.ID
	b.BlockType = in.BlockType
	b.OrderID = in.OrderID
	b.Styles = in.Styles

	target := newContent(in.BlockType)
	if target == nil {
		b.Content = UnknownContent{Type: in.BlockType, Raw: in.Content}
		return nil
	}
	if len(in.Content) > 0 && string(in.Content) != "null" {
		if err := json.Unmarshal(in.Content, target); err != nil {
			return fmt.Errorf("emailblock: decode %s content of block %q: %w", in.BlockType, in.ID, err)
		}
	}
	b.Content = deref(target)
	return nil
}

// Consistent reports whether Content is set and is the variant BlockType
// names.
func (b Block) Consistent() bool {
	return b.Content != nil && b.Content.blockType() == b.BlockType
}

// Structure is an email: an ordered list of independent blocks.
type Structure struct {
	Subject   string  `json:"subject,omitempty"`
	Preheader string  `json:"preheader,omitempty"`
	Blocks    []Block `json:"blocks"`
}

// Sorted returns the blocks ordered by ascending OrderID. Ties keep their
// input order. The receiver is not modified.
func (s Structure) Sorted() []Block {
	out := make([]Block, len(s.Blocks))
	copy(out, s.Blocks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// NextOrderID returns an order id placing a new block after every existing one.
func (s Structure) NextOrderID() int {
	next := 0
	for _, b := range s.Blocks {
		if b.OrderID >= next {
			next = b.OrderID + 1
		}
	}
	return next
}

// Append adds a block at the end, assigning an id and order id when missing.
func (s *Structure) Append(c Content, styles Styles) Block {
	b := NewBlock(c, s.NextOrderID(), styles)
	s.Blocks = append(s.Blocks, b)
	return b
}

// NewBlock builds a block for the given content with a fresh id.
func NewBlock(c Content, orderID int, styles Styles) Block {
	return Block{
		ID:        uuid.NewString(),
		BlockType: c.blockType(),
		OrderID:   orderID,
		Styles:    styles,
		Content:   c,
	}
}
