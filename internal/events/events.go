// Package events decodes trigger payloads into a single Trigger value and
// builds the CloudEvent envelopes sent to remote workers.
//
// Three request shapes are accepted: a structured CloudEvent (JSON envelope
// with the payload under "data"), a binary CloudEvent (ce-* headers with the
// payload as body), and the bare payload. The payload is either a single
// asset ({name, contentType, options}) or a bulk request
// ({bulk_process: true, folder_path, recursive, height}).
package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"media-deriver/internal/mediatypes"
)

// CloudEvent constants.
const (
	SpecVersion            = "1.0"
	ContentTypeCloudEvents = "application/cloudevents+json"
	ContentTypeJSON        = "application/json"

	TypeAssetProcess = "media.asset.process"
	TypeBulkProcess  = "media.bulk.process"
)

// ErrInvalidTrigger is returned for payloads that fail to parse or validate.
var ErrInvalidTrigger = errors.New("invalid trigger")

var validate = validator.New()

// Envelope is a structured-mode CloudEvent.
type Envelope struct {
	SpecVersion     string          `json:"specversion" validate:"omitempty,eq=1.0"`
	ID              string          `json:"id" validate:"required"`
	Source          string          `json:"source" validate:"required"`
	Type            string          `json:"type" validate:"required"`
	Time            time.Time       `json:"time,omitempty"`
	DataContentType string          `json:"datacontenttype,omitempty"`
	Data            json.RawMessage `json:"data" validate:"required"`
}

// OptionsData is the wire form of mediatypes.ProcessingOptions.
type OptionsData struct {
	Height       int    `json:"height,omitempty" validate:"gte=0,lte=8192"`
	OutputFormat string `json:"output_format,omitempty" validate:"omitempty,oneof=webm mp4 mkv"`
}

// AssetData is the single-asset payload.
type AssetData struct {
	Name        string       `json:"name" validate:"required"`
	ContentType string       `json:"contentType,omitempty"`
	Size        int64        `json:"size,omitempty" validate:"gte=0"`
	Options     *OptionsData `json:"options,omitempty"`
}

// BulkData is the bulk folder payload. FolderPath may be empty for the
// store root but must be present.
type BulkData struct {
	BulkProcess  bool    `json:"bulk_process"`
	FolderPath   *string `json:"folder_path" validate:"required"`
	Recursive    *bool   `json:"recursive,omitempty"`
	Height       int     `json:"height,omitempty" validate:"gte=0,lte=8192"`
	OutputFormat string  `json:"output_format,omitempty" validate:"omitempty,oneof=webm mp4 mkv"`
}

// Kind tags a Trigger.
type Kind int

const (
	KindSingleAsset Kind = iota + 1
	KindBulkFolder
)

func (k Kind) String() string {
	switch k {
	case KindSingleAsset:
		return "single_asset"
	case KindBulkFolder:
		return "bulk_folder"
	default:
		return "unknown"
	}
}

// SingleAsset asks for one asset to be processed.
type SingleAsset struct {
	Asset   mediatypes.Asset
	Options mediatypes.ProcessingOptions
}

// BulkFolder asks for every asset under a folder to be processed.
type BulkFolder struct {
	Folder    string
	Recursive bool
	Options   mediatypes.ProcessingOptions
}

// Trigger is a decoded request. Exactly one of Single and Bulk is set,
// matching Kind.
type Trigger struct {
	Kind   Kind
	ID     string
	Single *SingleAsset
	Bulk   *BulkFolder
}

// Decode parses a request body and its headers into a Trigger.
func Decode(body []byte, header http.Header) (Trigger, error) {
	var t Trigger
	data := body

	switch {
	case header.Get("Ce-Id") != "":
		t.ID = header.Get("Ce-Id")
	case isEnvelope(body):
		var env Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return Trigger{}, fmt.Errorf("%w: envelope: %v", ErrInvalidTrigger, err)
		}
		if err := validate.Struct(env); err != nil {
			return Trigger{}, fmt.Errorf("%w: envelope: %v", ErrInvalidTrigger, err)
		}
		t.ID = env.ID
		data = env.Data
	}

	var probe struct {
		BulkProcess bool `json:"bulk_process"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Trigger{}, fmt.Errorf("%w: %v", ErrInvalidTrigger, err)
	}

	if probe.BulkProcess {
		bulk, err := decodeBulk(data)
		if err != nil {
			return Trigger{}, err
		}
		t.Kind, t.Bulk = KindBulkFolder, bulk
		return t, nil
	}

	single, err := decodeSingle(data)
	if err != nil {
		return Trigger{}, err
	}
	t.Kind, t.Single = KindSingleAsset, single
	return t, nil
}

// isEnvelope reports whether body is a structured CloudEvent rather than a
// bare payload.
func isEnvelope(body []byte) bool {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return false
	}
	_, hasSpec := keys["specversion"]
	_, hasData := keys["data"]
	return hasSpec || hasData
}

func decodeSingle(data []byte) (*SingleAsset, error) {
	var d AssetData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: asset: %v", ErrInvalidTrigger, err)
	}
	if err := validate.Struct(d); err != nil {
		return nil, fmt.Errorf("%w: asset: %v", ErrInvalidTrigger, err)
	}

	var opts mediatypes.ProcessingOptions
	if d.Options != nil {
		var err error
		if opts, err = toOptions(d.Options.Height, d.Options.OutputFormat); err != nil {
			return nil, err
		}
	}
	return &SingleAsset{
		Asset:   mediatypes.Asset{Path: d.Name, ContentType: d.ContentType, Size: d.Size},
		Options: opts,
	}, nil
}

func decodeBulk(data []byte) (*BulkFolder, error) {
	var d BulkData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: bulk: %v", ErrInvalidTrigger, err)
	}
	if err := validate.Struct(d); err != nil {
		return nil, fmt.Errorf("%w: bulk: %v", ErrInvalidTrigger, err)
	}

	opts, err := toOptions(d.Height, d.OutputFormat)
	if err != nil {
		return nil, err
	}
	recursive := true
	if d.Recursive != nil {
		recursive = *d.Recursive
	}
	return &BulkFolder{Folder: *d.FolderPath, Recursive: recursive, Options: opts}, nil
}

func toOptions(height int, format string) (mediatypes.ProcessingOptions, error) {
	f, err := mediatypes.ParseVideoFormat(format)
	if err != nil {
		return mediatypes.ProcessingOptions{}, fmt.Errorf("%w: %v", ErrInvalidTrigger, err)
	}
	return mediatypes.ProcessingOptions{ThumbnailHeight: height, VideoFormat: f}, nil
}

func fromOptions(opts mediatypes.ProcessingOptions) *OptionsData {
	if opts.ThumbnailHeight <= 0 && opts.VideoFormat == "" {
		return nil
	}
	return &OptionsData{Height: opts.ThumbnailHeight, OutputFormat: string(opts.VideoFormat)}
}

func newEnvelope(source, eventType string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		SpecVersion:     SpecVersion,
		ID:              uuid.NewString(),
		Source:          source,
		Type:            eventType,
		Time:            time.Now().UTC(),
		DataContentType: ContentTypeJSON,
		Data:            raw,
	}, nil
}

// NewAssetEnvelope builds the request a remote worker receives for asset.
func NewAssetEnvelope(source string, asset mediatypes.Asset, opts mediatypes.ProcessingOptions) (Envelope, error) {
	return newEnvelope(source, TypeAssetProcess, AssetData{
		Name:        asset.Path,
		ContentType: asset.ContentType,
		Size:        asset.Size,
		Options:     fromOptions(opts),
	})
}

// NewBulkEnvelope builds a bulk folder request.
func NewBulkEnvelope(source, folder string, recursive bool, opts mediatypes.ProcessingOptions) (Envelope, error) {
	return newEnvelope(source, TypeBulkProcess, BulkData{
		BulkProcess:  true,
		FolderPath:   &folder,
		Recursive:    &recursive,
		Height:       opts.ThumbnailHeight,
		OutputFormat: string(opts.VideoFormat),
	})
}

// Marshal encodes e as a structured CloudEvent body.
func (e Envelope) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
