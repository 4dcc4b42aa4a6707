package remote

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/models"
	"gopkg.in/yaml.v3"
)

var delimiter = []byte("---\n")

type frontMatter struct {
	ID       string    `yaml:"id"`
	Title    string    `yaml:"title"`
	Tags     []string  `yaml:"tags,omitempty"`
	Modified time.Time `yaml:"modified"`
}

// MarshalNote renders a note as markdown with a YAML front matter block.
// Backends that store plain files (folder, S3) share this format.
func MarshalNote(n *models.Note) ([]byte, error) {
	meta, err := yaml.Marshal(frontMatter{
		ID:       n.ID,
		Title:    n.Title,
		Tags:     n.Tags,
		Modified: n.ModifiedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSerialization, err)
	}

	var buf bytes.Buffer
	buf.Write(delimiter)
	buf.Write(meta)
	buf.Write(delimiter)
	buf.WriteString(n.Text)
	return buf.Bytes(), nil
}

// UnmarshalNote parses a document written by MarshalNote. The storage key
// id wins over the id recorded in the front matter. Delimiter lines may end
// in CRLF; the body is returned byte for byte.
func UnmarshalNote(id string, data []byte) (*models.Note, error) {
	first, off := nextLine(data, 0)
	if !isDelimiter(first) {
		return nil, fmt.Errorf("%w: note %s has no front matter", common.ErrSerialization, id)
	}

	metaStart := off
	var meta, body []byte
	closed := false
	for off < len(data) {
		lineStart := off
		line, next := nextLine(data, off)
		if isDelimiter(line) {
			meta, body = data[metaStart:lineStart], data[next:]
			closed = true
			break
		}
		off = next
	}
	if !closed {
		return nil, fmt.Errorf("%w: note %s front matter is not closed", common.ErrSerialization, id)
	}

	var fm frontMatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return nil, fmt.Errorf("%w: note %s: %v", common.ErrSerialization, id, err)
	}

	return &models.Note{
		ID:         id,
		Title:      fm.Title,
		Text:       string(body),
		Tags:       fm.Tags,
		ModifiedAt: fm.Modified,
	}, nil
}

// nextLine returns the line starting at off without its newline, and the
// offset of the line after it.
func nextLine(data []byte, off int) ([]byte, int) {
	i := bytes.IndexByte(data[off:], '\n')
	if i < 0 {
		return data[off:], len(data)
	}
	return data[off : off+i], off + i + 1
}

func isDelimiter(line []byte) bool {
	return bytes.Equal(bytes.TrimSuffix(line, []byte("\r")), []byte("---"))
}
