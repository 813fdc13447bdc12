package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/saintfish/chardet"

	"github.com/GriffinCanCode/modshell/internal/shared/types"
	"github.com/GriffinCanCode/modshell/internal/shared/utils"
)

// manifestHeader is the part of a manifest needed to identify a module
type manifestHeader struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Version string `json:"version" yaml:"version" toml:"version"`
}

// manifest is the on-disk declaration of an extension module
type manifest struct {
	Name    string         `json:"name" yaml:"name" toml:"name"`
	Version string         `json:"version" yaml:"version" toml:"version"`
	Parts   []manifestPart `json:"parts" yaml:"parts" toml:"parts"`
}

type manifestPart struct {
	ID        string                `json:"id" yaml:"id" toml:"id"`
	Type      string                `json:"type" yaml:"type" toml:"type"`
	Contracts []string              `json:"contracts" yaml:"contracts" toml:"contracts"`
	Requires  []manifestRequirement `json:"requires" yaml:"requires" toml:"requires"`
	Sharing   string                `json:"sharing" yaml:"sharing" toml:"sharing"`
	Order     float64               `json:"order" yaml:"order" toml:"order"`
	Stage     string                `json:"stage" yaml:"stage" toml:"stage"`
	GUID      string                `json:"guid" yaml:"guid" toml:"guid"`
	Metadata  map[string]string     `json:"metadata" yaml:"metadata" toml:"metadata"`
}

type manifestRequirement struct {
	Contract    string `json:"contract" yaml:"contract" toml:"contract"`
	Cardinality string `json:"cardinality" yaml:"cardinality" toml:"cardinality"`
	Lazy        bool   `json:"lazy" yaml:"lazy" toml:"lazy"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// detectCharset names the most likely encoding of data for error messages
func detectCharset(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil || result.Charset == "" {
		return "unknown encoding"
	}
	return result.Charset
}

// readManifest reads and decodes the manifest at path into v by file extension
func readManifest(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, utils.MaxManifestSize+1))
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(data) > utils.MaxManifestSize {
		return fmt.Errorf("manifest exceeds %d bytes", utils.MaxManifestSize)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return fmt.Errorf("manifest is not UTF-8 (detected %s)", detectCharset(data))
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	case ".toml":
		err = toml.Unmarshal(data, v)
	case ".json":
		err = sonic.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported manifest format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to decode manifest: %w", err)
	}
	return nil
}

func (h manifestHeader) validate() error {
	if err := utils.ValidateModuleName(h.Name); err != nil {
		return err
	}
	return utils.ValidateString(h.Version, "module version", 0, utils.MaxIDLength, false)
}

// descriptors converts the manifest parts, failing on the first invalid one
func (m manifest) descriptors() ([]types.PartDescriptor, error) {
	parts := make([]types.PartDescriptor, 0, len(m.Parts))
	for i, mp := range m.Parts {
		desc, err := mp.descriptor(m.Name)
		if err != nil {
			return nil, fmt.Errorf("part %d (%s): %w", i, mp.ID, err)
		}
		parts = append(parts, desc)
	}
	return parts, nil
}

func (mp manifestPart) descriptor(module string) (types.PartDescriptor, error) {
	if err := utils.ValidatePartID(mp.ID); err != nil {
		return types.PartDescriptor{}, err
	}
	if err := utils.ValidateMetadata(mp.Metadata); err != nil {
		return types.PartDescriptor{}, err
	}
	sharing, err := types.ParseSharing(mp.Sharing)
	if err != nil {
		return types.PartDescriptor{}, err
	}
	stage, err := types.ParseStage(mp.Stage)
	if err != nil {
		return types.PartDescriptor{}, err
	}

	requires := make([]types.Requirement, 0, len(mp.Requires))
	for _, mr := range mp.Requires {
		card, err := types.ParseCardinality(mr.Cardinality)
		if err != nil {
			return types.PartDescriptor{}, err
		}
		requires = append(requires, types.Requirement{
			Contract:    mr.Contract,
			Cardinality: card,
			Lazy:        mr.Lazy,
		})
	}

	desc := types.PartDescriptor{
		ID:        mp.ID,
		Type:      mp.Type,
		Module:    module,
		Contracts: mp.Contracts,
		Requires:  requires,
		Sharing:   sharing,
		Metadata: types.PartMetadata{
			Order: mp.Order,
			Stage: stage,
			GUID:  mp.GUID,
			Extra: mp.Metadata,
		},
	}
	return desc, desc.Validate()
}
