// Package sbom loads CycloneDX-shaped SBOM documents into ir.Document.
//
// Loading happens in three passes: a structural check against an embedded
// CUE schema, a decode into typed records, and semantic validation with
// go-playground/validator. Only documents that pass all three reach the
// engine.
package sbom

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/sbomgraph/internal/ir"
)

//go:embed schema.cue
var schemaSource []byte

// DefaultCacheSize is the number of parsed documents kept by content hash.
const DefaultCacheSize = 256

type rawComponent struct {
	ID         string         `json:"id"`
	Purl       string         `json:"purl"`
	BomRef     string         `json:"bom-ref"`
	Components []rawComponent `json:"components" validate:"dive"`
}

// identity is the first non-empty of id, purl, bom-ref.
func (c rawComponent) identity() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Purl != "":
		return c.Purl
	default:
		return c.BomRef
	}
}

type rawDependency struct {
	Ref       string   `json:"ref" validate:"required"`
	DependsOn []string `json:"dependsOn" validate:"dive,required"`
}

type rawMetadata struct {
	Component *rawComponent `json:"component"`
}

type rawDocument struct {
	Metadata     *rawMetadata    `json:"metadata"`
	Components   []rawComponent  `json:"components" validate:"dive"`
	Dependencies []rawDependency `json:"dependencies" validate:"dive"`
}

// Decoder parses SBOM bytes. It is safe for concurrent use.
type Decoder struct {
	mu       sync.Mutex // guards cue; a cue.Context is not safe for concurrent use
	cue      *cue.Context
	schema   cue.Value
	validate *validator.Validate
	cache    *lru.Cache[string, *ir.Document]
}

// NewDecoder compiles the embedded schema and sets up the decode cache.
// cacheSize <= 0 uses DefaultCacheSize.
func NewDecoder(cacheSize int) (*Decoder, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	ctx := cuecontext.New()
	root := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	schema := root.LookupPath(cue.ParsePath("#Document"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Document: %w", err)
	}

	cache, err := lru.New[string, *ir.Document](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &Decoder{
		cue:      ctx,
		schema:   schema,
		validate: newValidator(),
		cache:    cache,
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(rawComponent)
		if c.identity() == "" {
			sl.ReportError(c.ID, "id", "ID", "identity", "")
		}
	}, rawComponent{})
	return v
}

// LoadFile reads and decodes one document. The path becomes the Source.
func (d *Decoder) LoadFile(path string) (*ir.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Source: path, Message: err.Error()}
	}
	return d.Decode(path, data)
}

// Decode parses data into a document labelled with source.
//
// Identical bytes are decoded once: later calls return the cached document
// with the new Source. Returned documents share slices with the cache and
// must not be modified.
func (d *Decoder) Decode(source string, data []byte) (*ir.Document, error) {
	key := contentKey(data)
	if cached, ok := d.cache.Get(key); ok {
		doc := *cached
		doc.Source = source
		return &doc, nil
	}

	if err := d.checkSchema(source, data); err != nil {
		return nil, err
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Source: source, Message: err.Error()}
	}

	if err := d.validate.Struct(raw); err != nil {
		le := fromValidator(source, err)
		le.Field = trimNamespace(le.Field)
		return nil, le
	}

	doc := raw.toDocument()
	d.cache.Add(key, doc)

	out := *doc
	out.Source = source
	return &out, nil
}

// checkSchema unifies the JSON with #Document.
func (d *Decoder) checkSchema(source string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	expr, err := cuejson.Extract(source, data)
	if err != nil {
		return fromCUE(ErrCodeParse, source, err)
	}

	v := d.cue.BuildExpr(expr)
	if err := v.Err(); err != nil {
		return fromCUE(ErrCodeParse, source, err)
	}

	if err := d.schema.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fromCUE(ErrCodeSchema, source, err)
	}
	return nil
}

// CacheLen returns the number of cached documents.
func (d *Decoder) CacheLen() int {
	return d.cache.Len()
}

func (raw *rawDocument) toDocument() *ir.Document {
	doc := &ir.Document{
		Components:   []ir.Identifier{},
		Dependencies: make([]ir.Dependency, 0, len(raw.Dependencies)),
	}

	if raw.Metadata != nil && raw.Metadata.Component != nil {
		doc.Root = ir.Identifier(raw.Metadata.Component.identity())
	}

	var walk func(cs []rawComponent)
	walk = func(cs []rawComponent) {
		for _, c := range cs {
			doc.Components = append(doc.Components, ir.Identifier(c.identity()))
			walk(c.Components)
		}
	}
	walk(raw.Components)

	for _, dep := range raw.Dependencies {
		targets := make([]ir.Identifier, len(dep.DependsOn))
		for i, t := range dep.DependsOn {
			targets[i] = ir.Identifier(t)
		}
		doc.Dependencies = append(doc.Dependencies, ir.Dependency{Ref: ir.Identifier(dep.Ref), DependsOn: targets})
	}

	return doc
}

func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// trimNamespace drops the Go type name validator prefixes to namespaces:
// "rawDocument.dependencies[0].ref" → "dependencies[0].ref".
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
