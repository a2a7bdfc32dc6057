package layout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// WriteDebugJSON 将最终位置记录输出为 JSON，便于调试或可视化。
func WriteDebugJSON(positions []Position, path string) error {
	if positions == nil {
		positions = []Position{}
	}
	data, err := json.MarshalIndent(positions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// packedPosition is the compact on-disk form of a Position.
type packedPosition struct {
	Depth     uint32     `msgpack:"d"`
	Heading   uint8      `msgpack:"h,omitempty"`
	ID        string     `msgpack:"i,omitempty"`
	Rect      [4]float64 `msgpack:"r"`
	Text      string     `msgpack:"t,omitempty"`
	OpenClose uint8      `msgpack:"o"`
	RectNum   uint32     `msgpack:"n"`
	Href      string     `msgpack:"l,omitempty"`
	PageNum   uint32     `msgpack:"p"`
}

// WritePositionsMsgpack encodes positions to w in the compact msgpack form.
func WritePositionsMsgpack(w io.Writer, positions []Position) error {
	packed := make([]packedPosition, 0, len(positions))
	for i, p := range positions {
		pp, err := pack(p)
		if err != nil {
			return fmt.Errorf("position %d: %w", i, err)
		}
		packed = append(packed, pp)
	}
	return msgpack.NewEncoder(w).Encode(packed)
}

// ReadPositionsMsgpack decodes a stream written by WritePositionsMsgpack.
func ReadPositionsMsgpack(r io.Reader) ([]Position, error) {
	var packed []packedPosition
	if err := msgpack.NewDecoder(r).Decode(&packed); err != nil {
		return nil, err
	}
	out := make([]Position, len(packed))
	for i, pp := range packed {
		out[i] = Position{
			Depth:     int(pp.Depth),
			Heading:   int(pp.Heading),
			ID:        pp.ID,
			Rect:      Rect{X0: pp.Rect[0], Y0: pp.Rect[1], X1: pp.Rect[2], Y1: pp.Rect[3]},
			Text:      pp.Text,
			OpenClose: OpenClose(pp.OpenClose),
			RectNum:   int(pp.RectNum),
			Href:      pp.Href,
			PageNum:   int(pp.PageNum),
		}
	}
	return out, nil
}

func pack(p Position) (packedPosition, error) {
	depth, err := safecast.Conv[uint32](p.Depth)
	if err != nil {
		return packedPosition{}, fmt.Errorf("depth: %w", err)
	}
	heading, err := safecast.Conv[uint8](p.Heading)
	if err != nil {
		return packedPosition{}, fmt.Errorf("heading: %w", err)
	}
	oc, err := safecast.Conv[uint8](int(p.OpenClose))
	if err != nil {
		return packedPosition{}, fmt.Errorf("openClose: %w", err)
	}
	rectNum, err := safecast.Conv[uint32](p.RectNum)
	if err != nil {
		return packedPosition{}, fmt.Errorf("rectNum: %w", err)
	}
	pageNum, err := safecast.Conv[uint32](p.PageNum)
	if err != nil {
		return packedPosition{}, fmt.Errorf("pageNum: %w", err)
	}
	return packedPosition{
		Depth:     depth,
		Heading:   heading,
		ID:        p.ID,
		Rect:      [4]float64{p.Rect.X0, p.Rect.Y0, p.Rect.X1, p.Rect.Y1},
		Text:      p.Text,
		OpenClose: oc,
		RectNum:   rectNum,
		Href:      p.Href,
		PageNum:   pageNum,
	}, nil
}
