package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Target kinds the pipeline can reconcile.
const (
	TargetDelivery = "delivery"
	TargetPO       = "po"
	TargetPayment  = "payment"
)

// ExtractionMessage is the inbound payload from the document-extraction
// workflow: one target record plus the extracted field bag and a confidence
// score in [0,100].
type ExtractionMessage struct {
	TargetKind   string                 `json:"-"`
	TargetID     uint                   `json:"-"`
	Status       string                 `json:"extraction_status" binding:"required"`
	Confidence   float64                `json:"extraction_confidence"`
	Extracted    map[string]interface{} `json:"extracted_data"`
	DocumentPath string                 `json:"document_path"`
	ErrorMessage string                 `json:"error_message"`
	AIModel      string                 `json:"ai_model"`
}

// Checksum hashes the canonical form of the extracted bag plus the
// confidence. Replaying the same message yields the same checksum, which the
// pipeline uses to make replays no-ops.
func (m *ExtractionMessage) Checksum() string {
	canon, err := canonicalJSON(m.Extracted)
	if err != nil {
		canon = []byte(fmt.Sprintf("%v", m.Extracted))
	}
	h := sha256.New()
	h.Write(canon)
	fmt.Fprintf(h, "|%.4f", m.Confidence)
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON marshals with sorted keys at every level. encoding/json
// already sorts map keys, so one decode/encode round trip through
// map[string]interface{} is enough.
func canonicalJSON(bag map[string]interface{}) ([]byte, error) {
	if bag == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(bag)
	if err != nil {
		return nil, err
	}
	var norm map[string]interface{}
	if err := json.Unmarshal(raw, &norm); err != nil {
		return nil, err
	}
	return json.Marshal(norm)
}
