package catalog

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/grimoire/internal/entity"
)

// Catalog is a compiled entity catalog.
type Catalog struct {
	Name      string
	Enrichers []string
	Entities  []*entity.Entity

	// Handles maps entity id to its handle in the CUE source.
	Handles map[int64]string
}

// Mode controls how errors are handled during compilation.
type Mode int

const (
	// FailFast stops on the first error encountered.
	FailFast Mode = iota
	// CollectAll collects all errors before returning.
	CollectAll
)

// Compile reads the catalog and entity structs of a built CUE value.
func Compile(v cue.Value, mode Mode) (*Catalog, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{toLoadError(formatCUEError("cue", err))}
	}

	cat := &Catalog{Handles: make(map[int64]string)}
	var errs []error
	fail := func(err error) bool {
		errs = append(errs, toLoadError(err))
		return mode == FailFast
	}

	if err := compileHeader(v.LookupPath(cue.ParsePath("catalog")), cat); err != nil {
		if fail(err) {
			return cat, errs
		}
	}

	entities := v.LookupPath(cue.ParsePath("entity"))
	if entities.Exists() {
		iter, err := entities.Fields()
		if err != nil {
			if fail(formatCUEError("entity", err)) {
				return cat, errs
			}
		} else {
			for iter.Next() {
				e, err := CompileEntity(iter.Value())
				if err != nil {
					if fail(err) {
						return cat, errs
					}
					continue
				}
				cat.Entities = append(cat.Entities, e)
				cat.Handles[e.ID] = iter.Label()
			}
		}
	}

	if len(cat.Entities) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoEntities, Message: "no entities found in catalog", Pos: v.Pos()})
	}
	return cat, errs
}

func compileHeader(v cue.Value, cat *Catalog) error {
	if !v.Exists() {
		return nil
	}
	if name := v.LookupPath(cue.ParsePath("name")); name.Exists() {
		s, err := name.String()
		if err != nil {
			return formatCUEError("catalog.name", err)
		}
		cat.Name = s
	}
	list := v.LookupPath(cue.ParsePath("enrichers"))
	if !list.Exists() {
		return nil
	}
	iter, err := list.List()
	if err != nil {
		return formatCUEError("catalog.enrichers", err)
	}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return formatCUEError("catalog.enrichers", err)
		}
		cat.Enrichers = append(cat.Enrichers, s)
	}
	return nil
}

// CompileEntity parses one entity struct.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: fireball: {id: 133, type: "baseline"}`)
//	e, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.fireball")))
func CompileEntity(v cue.Value) (*entity.Entity, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("cue", err)
	}

	id, err := requiredInt(v, "id")
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, &CompileError{Field: "id", Message: fmt.Sprintf("id must be positive, got %d", id), Pos: v.LookupPath(cue.ParsePath("id")).Pos()}
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return nil, &CompileError{Field: "type", Message: "type is required", Pos: v.Pos()}
	}
	typeStr, err := typeVal.String()
	if err != nil {
		return nil, formatCUEError("type", err)
	}
	kind, err := entity.ParseKind(typeStr)
	if err != nil {
		return nil, &CompileError{Field: "type", Message: err.Error(), Pos: typeVal.Pos()}
	}

	variant, err := compileVariant(v, kind)
	if err != nil {
		return nil, err
	}

	e := entity.New(id, variant)
	if v.LookupPath(cue.ParsePath("overrides")).Exists() {
		overrides, err := requiredInt(v, "overrides")
		if err != nil {
			return nil, err
		}
		entity.Overrides.Set(e, overrides)
	}
	return e, nil
}

func compileVariant(v cue.Value, kind entity.Kind) (entity.Variant, error) {
	switch kind {
	case entity.KindBaseline:
		return entity.Baseline{}, nil

	case entity.KindLearned:
		taughtBy, err := requiredInt(v, "taughtBy")
		if err != nil {
			return nil, err
		}
		return entity.Learned{TaughtBy: taughtBy}, nil

	case entity.KindTemporary:
		grantedBy, err := requiredInt(v, "grantedBy")
		if err != nil {
			return nil, err
		}
		return entity.Temporary{GrantedBy: grantedBy}, nil

	case entity.KindTalent:
		var t entity.Talent
		if list := v.LookupPath(cue.ParsePath("requiresTalentEntry")); list.Exists() {
			iter, err := list.List()
			if err != nil {
				return nil, formatCUEError("requiresTalentEntry", err)
			}
			for iter.Next() {
				n, err := iter.Value().Int64()
				if err != nil {
					return nil, formatCUEError("requiresTalentEntry", err)
				}
				t.RequiresTalentEntry = append(t.RequiresTalentEntry, n)
			}
		}
		if vis := v.LookupPath(cue.ParsePath("visibleSpellId")); vis.Exists() {
			n, err := vis.Int64()
			if err != nil {
				return nil, formatCUEError("visibleSpellId", err)
			}
			t.VisibleSpellID = n
		}
		if granted := v.LookupPath(cue.ParsePath("granted")); granted.Exists() {
			b, err := granted.Bool()
			if err != nil {
				return nil, formatCUEError("granted", err)
			}
			t.Granted = b
		}
		return t, nil

	case entity.KindLegacyTalent:
		row, err := requiredInt(v, "row")
		if err != nil {
			return nil, err
		}
		col, err := requiredInt(v, "column")
		if err != nil {
			return nil, err
		}
		return entity.LegacyTalent{Row: int(row), Column: int(col)}, nil
	}
	return nil, &CompileError{Field: "type", Message: fmt.Sprintf("unsupported type %q", kind), Pos: v.Pos()}
}

func requiredInt(v cue.Value, field string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(field, err)
	}
	return n, nil
}
