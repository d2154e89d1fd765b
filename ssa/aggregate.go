package ssa

// AggregateField is one member of an aggregate layout with an explicit byte
// offset.
type AggregateField struct {
	Type   Type
	Offset uint32
}

// AggregateLayout is the resolved layout of an aggregate type: an ordered
// field sequence, the total padded size and the alignment.
type AggregateLayout struct {
	Fields []AggregateField
	// Size is the total byte size, padded to Align.
	Size uint32
	// Align is the max of the field alignments.
	Align uint32
}

// fieldAlign returns the natural alignment of a field type. Aggregate fields
// are not nested; the front end flattens them before handing the function to
// the backend.
func fieldAlign(t Type) uint32 {
	if t.IsAggregate() {
		panic("BUG: nested aggregate field")
	}
	return uint32(t.Size())
}

// DeclareAggregate interns an aggregate layout and returns its Type handle.
// When every field after the first has a zero Offset, the fields are laid
// out in order with natural-alignment padding; otherwise every Offset is
// kept as given, zero ones included.
func (b *builder) DeclareAggregate(fields []AggregateField) Type {
	layout := AggregateLayout{Fields: append([]AggregateField(nil), fields...)}

	var off, align uint32
	explicit := false
	for i := 1; i < len(fields); i++ {
		if fields[i].Offset != 0 {
			explicit = true
			break
		}
	}
	for i := range layout.Fields {
		f := &layout.Fields[i]
		a := fieldAlign(f.Type)
		if a > align {
			align = a
		}
		if !explicit {
			off = alignUp(off, a)
			f.Offset = off
			off += uint32(f.Type.Size())
		} else if end := f.Offset + uint32(f.Type.Size()); end > off {
			off = end
		}
	}
	if align == 0 {
		align = 1
	}
	layout.Size = alignUp(off, align)
	layout.Align = align

	b.aggregates = append(b.aggregates, layout)
	return AggregateType(len(b.aggregates) - 1)
}

// AggregateLayoutOf returns the layout interned for the given aggregate type.
func (b *builder) AggregateLayoutOf(t Type) *AggregateLayout {
	return &b.aggregates[t.AggregateIndex()]
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}
