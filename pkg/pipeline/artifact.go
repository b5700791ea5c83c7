package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// stagesDir holds one artifact per stage under the data directory.
// Artifacts form the contract between stages: a stage whose in-memory
// input is missing reads its predecessor's artifact instead.
const stagesDir = "stages"

// artifactEnvelope wraps every stage artifact with its generation time
// and summary counts.
type artifactEnvelope struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Counts      map[string]int  `json:"counts,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// writeArtifact persists a stage's output. A failing stage never calls
// this, so the previous run's artifact survives the failure.
func writeArtifact(dataDir, stageID string, counts map[string]int, payload any) error {
	dir := filepath.Join(dataDir, stagesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := artifactEnvelope{GeneratedAt: time.Now(), Counts: counts, Data: raw}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, stageID+".json"), data)
}

// readArtifact loads a prior stage artifact into payload. Returns false
// when no artifact exists.
func readArtifact(dataDir, stageID string, payload any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, stagesDir, stageID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	var env artifactEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, err
	}
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return false, err
	}
	return true, nil
}
