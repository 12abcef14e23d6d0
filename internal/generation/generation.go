// Package generation holds the domain types and parsing logic for
// generation-parameters metadata attached to produced images.
package generation

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known tail field names as they appear in the parameters blob.
const (
	FieldPrompt         = "Prompt"
	FieldNegativePrompt = "Negative prompt"
	FieldModel          = "Model"
	FieldModelHash      = "Model hash"
	FieldVersion        = "Version"
	FieldSampler        = "Sampler"
	FieldSize           = "Size"
	FieldWidth          = "Width"
	FieldHeight         = "Height"
	FieldSteps          = "Steps"
	FieldSeed           = "Seed"
	FieldCFGScale       = "CFG scale"
)

// Fields is the outcome of parsing a generation-parameters blob.
// Tail holds the key-value pairs of the last line, values verbatim
// (unquoted but not type-coerced).
type Fields struct {
	Prompt         string
	NegativePrompt string
	Tail           map[string]string
}

// Event is the raw per-image event handed over by the image-generation
// pipeline once an image has been produced.
//
// SavePath is typed any because the upstream pipeline attaches it as loose
// metadata; a record is only written when it turns out to be a plain string.
type Event struct {
	SavePath     any       `json:"save_path"`
	Parameters   string    `json:"parameters"`
	Comments     string    `json:"comments"`
	JobStartTime time.Time `json:"job_start_time"`
	Interrupted  bool      `json:"interrupted"`
	Skipped      bool      `json:"skipped"`
	IsTxt2Img    bool      `json:"is_txt2img"`
	IsImg2Img    bool      `json:"is_img2img"`
}

// legacyTimeLayout is the second-precision layout the upstream pipeline
// emits for job start times when it does not produce RFC 3339.
const legacyTimeLayout = "2006-01-02 15:04:05"

// JobTimezone is the fixed UTC+8 basis job start times are recorded in.
// It is not derived from the host locale.
var JobTimezone = time.FixedZone("UTC+8", 8*60*60)

// UnmarshalJSON decodes an event, accepting job_start_time either as
// RFC 3339 or as the legacy zone-less "2006-01-02 15:04:05" layout
// interpreted on the fixed UTC+8 basis.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	aux := struct {
		*alias
		JobStartTime string `json:"job_start_time"`
	}{alias: (*alias)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.JobStartTime == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, aux.JobStartTime); err == nil {
		e.JobStartTime = t
		return nil
	}
	t, err := CoerceTime(aux.JobStartTime, legacyTimeLayout, JobTimezone)
	if err != nil {
		return fmt.Errorf("unparseable job_start_time %q", aux.JobStartTime)
	}
	e.JobStartTime = t
	return nil
}
