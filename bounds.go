package e57go

import (
	"math"

	"github.com/hupe1980/e57go/internal/colstore"
	"github.com/hupe1980/e57go/schema"
)

// extent is the observed value range of one field.
type extent struct {
	ordinal int
	lo, hi  float64
}

// bounds derives the header bounds a caller left unset from the written
// records.
type bounds struct {
	index, cartesian, spherical bool
	fields                      map[schema.FieldID]*extent
}

func newBounds(proto *schema.Prototype, h *Data3D) *bounds {
	b := &bounds{
		index:     h.IndexBounds == nil,
		cartesian: h.CartesianBounds == nil,
		spherical: h.SphericalBounds == nil,
		fields:    make(map[schema.FieldID]*extent),
	}
	track := func(enabled bool, ids ...schema.FieldID) {
		if !enabled {
			return
		}
		for _, id := range ids {
			if _, ord, ok := proto.Lookup(id); ok {
				b.fields[id] = &extent{ordinal: ord, lo: math.Inf(1), hi: math.Inf(-1)}
			}
		}
	}
	track(b.index, schema.RowIndex, schema.ColumnIndex, schema.ReturnIndex)
	track(b.cartesian, schema.CartesianX, schema.CartesianY, schema.CartesianZ)
	track(b.spherical, schema.SphericalRange, schema.SphericalAzimuth, schema.SphericalElevation)
	return b
}

func (b *bounds) observe(batch []*colstore.Vector, n int) {
	for _, e := range b.fields {
		v := batch[e.ordinal]
		for i := 0; i < n; i++ {
			x := value(v, i)
			if math.IsNaN(x) {
				continue
			}
			e.lo = math.Min(e.lo, x)
			e.hi = math.Max(e.hi, x)
		}
	}
}

func value(v *colstore.Vector, i int) float64 {
	switch {
	case v.Type.Kind == schema.KindInteger:
		return float64(v.I64[i])
	case v.Type.Precision == schema.Single:
		return float64(v.F32[i])
	default:
		return v.F64[i]
	}
}

// get returns the extent of id, or zeros when the field is absent or no
// record was written.
func (b *bounds) get(id schema.FieldID) (lo, hi float64, ok bool) {
	e, tracked := b.fields[id]
	if !tracked || e.lo > e.hi {
		return 0, 0, false
	}
	return e.lo, e.hi, true
}

func (b *bounds) seen(ids ...schema.FieldID) bool {
	for _, id := range ids {
		if _, _, ok := b.get(id); ok {
			return true
		}
	}
	return false
}

// apply stores the observed extents into h.
func (b *bounds) apply(h *Data3D) {
	if b.index && b.seen(schema.RowIndex, schema.ColumnIndex, schema.ReturnIndex) {
		ib := &IndexBounds{}
		if lo, hi, ok := b.get(schema.RowIndex); ok {
			ib.RowMinimum, ib.RowMaximum = int64(lo), int64(hi)
		}
		if lo, hi, ok := b.get(schema.ColumnIndex); ok {
			ib.ColumnMinimum, ib.ColumnMaximum = int64(lo), int64(hi)
		}
		if lo, hi, ok := b.get(schema.ReturnIndex); ok {
			ib.ReturnMinimum, ib.ReturnMaximum = int64(lo), int64(hi)
		}
		h.IndexBounds = ib
	}
	if b.cartesian && b.seen(schema.CartesianX, schema.CartesianY, schema.CartesianZ) {
		cb := &CartesianBounds{}
		cb.XMinimum, cb.XMaximum, _ = b.get(schema.CartesianX)
		cb.YMinimum, cb.YMaximum, _ = b.get(schema.CartesianY)
		cb.ZMinimum, cb.ZMaximum, _ = b.get(schema.CartesianZ)
		h.CartesianBounds = cb
	}
	if b.spherical && b.seen(schema.SphericalRange, schema.SphericalAzimuth, schema.SphericalElevation) {
		sb := &SphericalBounds{}
		sb.RangeMinimum, sb.RangeMaximum, _ = b.get(schema.SphericalRange)
		sb.AzimuthStart, sb.AzimuthEnd, _ = b.get(schema.SphericalAzimuth)
		sb.ElevationMinimum, sb.ElevationMaximum, _ = b.get(schema.SphericalElevation)
		h.SphericalBounds = sb
	}
}
