package extab

import "fmt"

// ActionKind identifies the shape of one exception action record. The low 7
// bits of a record's type byte hold the kind; the high bit is the end-of-chain
// marker and is stored separately on the record.
type ActionKind uint8

const (
	EndOfList ActionKind = iota
	Branch
	DestroyLocal
	DestroyLocalCond
	DestroyLocalPointer
	DestroyLocalArray
	DestroyBase
	DestroyMember
	DestroyMemberCond
	DestroyMemberArray
	DeletePointer
	DeletePointerCond
	CatchBlock
	ActiveCatchBlock
	Terminate
	Specification
	CatchBlock32

	numActionKinds = iota
)

// actionNames holds the display name for each kind, indexed by tag value.
var actionNames = [numActionKinds]string{
	"NULL",
	"BRANCH",
	"DESTROYLOCAL",
	"DESTROYLOCALCOND",
	"DESTROYLOCALPOINTER",
	"DESTROYLOCALARRAY",
	"DESTROYBASE",
	"DESTROYMEMBER",
	"DESTROYMEMBERCOND",
	"DESTROYMEMBERARRAY",
	"DELETEPOINTER",
	"DELETEPOINTERCOND",
	"CATCHBLOCK (Small)",
	"ACTIVECATCHBLOCK",
	"TERMINATE",
	"SPECIFICATION",
	"CATCHBLOCK (Large)",
}

// actionSizes holds the payload size in bytes for each kind. Specification is
// variable (base 10 plus 4 per spec entry); its base size lives here and the
// decoder adds the array length from a peeked count.
var actionSizes = [numActionKinds]int{
	EndOfList:           0,
	Branch:              2,
	DestroyLocal:        6,
	DestroyLocalCond:    10,
	DestroyLocalPointer: 6,
	DestroyLocalArray:   10,
	DestroyBase:         10,
	DestroyMember:       10,
	DestroyMemberCond:   14,
	DestroyMemberArray:  18,
	DeletePointer:       6,
	DeletePointerCond:   10,
	CatchBlock:          10,
	ActiveCatchBlock:    2,
	Terminate:           0,
	Specification:       10,
	CatchBlock32:        14,
}

// dtorOffsets holds the byte offset of the 4-byte destructor address field
// within each kind's payload, or -1 for kinds that carry none.
var dtorOffsets = [numActionKinds]int{
	EndOfList:           -1,
	Branch:              -1,
	DestroyLocal:        2,
	DestroyLocalCond:    6,
	DestroyLocalPointer: 2,
	DestroyLocalArray:   6,
	DestroyBase:         6,
	DestroyMember:       6,
	DestroyMemberCond:   10,
	DestroyMemberArray:  14,
	DeletePointer:       2,
	DeletePointerCond:   6,
	CatchBlock:          -1,
	ActiveCatchBlock:    -1,
	Terminate:           -1,
	Specification:       -1,
	CatchBlock32:        -1,
}

// actionKind maps a tag value to its kind. Returns false for tags outside
// the known range.
func actionKind(tag uint8) (ActionKind, bool) {
	if int(tag) >= numActionKinds {
		return 0, false
	}
	return ActionKind(tag), true
}

func (k ActionKind) String() string {
	if int(k) < numActionKinds {
		return actionNames[k]
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
}

// HasDtorRef reports whether records of this kind reference a destructor
// function.
func (k ActionKind) HasDtorRef() bool {
	return int(k) < numActionKinds && dtorOffsets[k] >= 0
}

// ActionRecord is one decoded exception action. The type-specific bytes are
// kept opaque in Payload; Data re-parses them on demand.
type ActionRecord struct {
	TableOffset uint32     `json:"table_offset"` // absolute offset of this record in the table
	Kind        ActionKind `json:"kind"`
	Param       uint8      `json:"param"`       // addressing-mode/flag byte; meaning depends on Kind
	HasEndBit   bool       `json:"has_end_bit"` // last record reachable by fallthrough from the previous one
	Payload     []byte     `json:"payload"`
}

// DtorField returns the payload offset and stored value of the record's
// 4-byte destructor address field. ok is false for kinds without one.
//
// The stored value is commonly a placeholder resolved by a separate runtime
// fixup table rather than a real code address; it is reported as-is.
func (a *ActionRecord) DtorField() (offset uint32, value uint32, ok bool, err error) {
	if !a.Kind.HasDtorRef() {
		return 0, 0, false, nil
	}
	fieldOff := dtorOffsets[a.Kind]
	if fieldOff < 0 {
		return 0, 0, false, errNoDtorOffset
	}
	if fieldOff+4 > len(a.Payload) {
		return 0, 0, false, ErrUnexpectedEOF
	}
	s := &stream{data: a.Payload, pos: fieldOff}
	v, err := s.ReadUint32()
	if err != nil {
		return 0, 0, false, err
	}
	return uint32(fieldOff), v, true, nil
}

// ActionData is the decoded, type-specific view of an action record's
// payload. Exactly one concrete type exists per ActionKind.
type ActionData interface {
	ActionKind() ActionKind
}

type EndOfListData struct{}

type BranchData struct {
	TargetOffset uint16 `json:"target_offset"`
}

type DestroyLocalData struct {
	LocalOffset uint16 `json:"local_offset"`
	Dtor        uint32 `json:"dtor"`
}

type DestroyLocalCondData struct {
	Condition   uint16 `json:"condition"`
	LocalOffset uint16 `json:"local_offset"`
	Unk4        uint16 `json:"unk4"` // meaning not recovered
	Dtor        uint32 `json:"dtor"`
}

type DestroyLocalPointerData struct {
	LocalPointer uint16 `json:"local_pointer"`
	Dtor         uint32 `json:"dtor"`
}

type DestroyLocalArrayData struct {
	LocalArray  uint16 `json:"local_array"`
	Elements    uint16 `json:"elements"`
	ElementSize uint16 `json:"element_size"`
	Dtor        uint32 `json:"dtor"`
}

type DestroyBaseData struct {
	ObjectPointer uint16 `json:"object_pointer"`
	MemberOffset  uint32 `json:"member_offset"`
	Dtor          uint32 `json:"dtor"`
}

type DestroyMemberData struct {
	ObjectPointer uint16 `json:"object_pointer"`
	MemberOffset  uint32 `json:"member_offset"`
	Dtor          uint32 `json:"dtor"`
}

type DestroyMemberCondData struct {
	Condition     uint16 `json:"condition"`
	ObjectPointer uint16 `json:"object_pointer"`
	MemberOffset  uint32 `json:"member_offset"`
	Unk8          uint16 `json:"unk8"` // meaning not recovered
	Dtor          uint32 `json:"dtor"`
}

type DestroyMemberArrayData struct {
	ObjectPointer uint16 `json:"object_pointer"`
	MemberOffset  uint32 `json:"member_offset"`
	Elements      uint32 `json:"elements"`
	ElementSize   uint32 `json:"element_size"`
	Dtor          uint32 `json:"dtor"`
}

type DeletePointerData struct {
	ObjectPointer uint16 `json:"object_pointer"`
	Dtor          uint32 `json:"dtor"`
}

type DeletePointerCondData struct {
	Condition     uint16 `json:"condition"`
	ObjectPointer uint16 `json:"object_pointer"`
	Unk4          uint16 `json:"unk4"` // meaning not recovered
	Dtor          uint32 `json:"dtor"`
}

type CatchBlockData struct {
	Unk0          uint16 `json:"unk0"` // meaning not recovered
	CatchType     uint32 `json:"catch_type"`
	CatchPCOffset uint16 `json:"catch_pc_offset"`
	CinfoRef      uint16 `json:"cinfo_ref"`
}

type ActiveCatchBlockData struct {
	CinfoRef uint16 `json:"cinfo_ref"`
}

type TerminateData struct{}

type SpecificationData struct {
	Specs    uint16   `json:"specs"`
	PCOffset uint32   `json:"pc_offset"`
	CinfoRef uint32   `json:"cinfo_ref"`
	Spec     []uint32 `json:"spec"`
}

type CatchBlock32Data struct {
	Unk0          uint16 `json:"unk0"` // meaning not recovered
	CatchType     uint32 `json:"catch_type"`
	CatchPCOffset uint32 `json:"catch_pc_offset"`
	CinfoRef      uint32 `json:"cinfo_ref"`
}

func (EndOfListData) ActionKind() ActionKind           { return EndOfList }
func (BranchData) ActionKind() ActionKind              { return Branch }
func (DestroyLocalData) ActionKind() ActionKind        { return DestroyLocal }
func (DestroyLocalCondData) ActionKind() ActionKind    { return DestroyLocalCond }
func (DestroyLocalPointerData) ActionKind() ActionKind { return DestroyLocalPointer }
func (DestroyLocalArrayData) ActionKind() ActionKind   { return DestroyLocalArray }
func (DestroyBaseData) ActionKind() ActionKind         { return DestroyBase }
func (DestroyMemberData) ActionKind() ActionKind       { return DestroyMember }
func (DestroyMemberCondData) ActionKind() ActionKind   { return DestroyMemberCond }
func (DestroyMemberArrayData) ActionKind() ActionKind  { return DestroyMemberArray }
func (DeletePointerData) ActionKind() ActionKind       { return DeletePointer }
func (DeletePointerCondData) ActionKind() ActionKind   { return DeletePointerCond }
func (CatchBlockData) ActionKind() ActionKind          { return CatchBlock }
func (ActiveCatchBlockData) ActionKind() ActionKind    { return ActiveCatchBlock }
func (TerminateData) ActionKind() ActionKind           { return Terminate }
func (SpecificationData) ActionKind() ActionKind       { return Specification }
func (CatchBlock32Data) ActionKind() ActionKind        { return CatchBlock32 }

// Data decodes the record's payload into its type-specific form. The payload
// length is revalidated against the kind's expected size before any field is
// read, so a corrupted record surfaces ErrUnexpectedEOF rather than a panic.
func (a *ActionRecord) Data() (ActionData, error) {
	s := newStream(a.Payload)

	switch a.Kind {
	case EndOfList:
		return EndOfListData{}, nil

	case Branch:
		target, err := s.ReadUint16()
		if err != nil {
			return nil, err
		}
		return BranchData{TargetOffset: target}, nil

	case DestroyLocal:
		var d DestroyLocalData
		var err error
		if d.LocalOffset, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.Dtor, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		return d, nil

	case DestroyLocalCond:
		var d DestroyLocalCondData
		var err error
		if d.Condition, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.LocalOffset, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.Unk4, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.Dtor, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		return d, nil

	case DestroyLocalPointer:
		var d DestroyLocalPointerData
		var err error
		if d.LocalPointer, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.Dtor, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		return d, nil

	case DestroyLocalArray:
		var d DestroyLocalArrayData
		var err error
		if d.LocalArray, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.Elements, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.ElementSize, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.Dtor, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		return d, nil

	case DestroyBase:
		var d DestroyBaseData
		var err error
		if d.ObjectPointer, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.MemberOffset, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if d.Dtor, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		return d, nil

	case DestroyMember:
		var d DestroyMemberData
		var err error
		if d.ObjectPointer, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.MemberOffset, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if d.Dtor, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		return d, nil

	case DestroyMemberCond:
		var d DestroyMemberCondData
		var err error
		if d.Condition, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.ObjectPointer, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.MemberOffset, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if d.Unk8, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.Dtor, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		return d, nil

	case DestroyMemberArray:
		var d DestroyMemberArrayData
		var err error
		if d.ObjectPointer, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.MemberOffset, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if d.Elements, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if d.ElementSize, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if d.Dtor, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		return d, nil

	case DeletePointer:
		var d DeletePointerData
		var err error
		if d.ObjectPointer, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.Dtor, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		return d, nil

	case DeletePointerCond:
		var d DeletePointerCondData
		var err error
		if d.Condition, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.ObjectPointer, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.Unk4, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.Dtor, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		return d, nil

	case CatchBlock:
		var d CatchBlockData
		var err error
		if d.Unk0, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.CatchType, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if d.CatchPCOffset, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.CinfoRef, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		return d, nil

	case ActiveCatchBlock:
		cinfo, err := s.ReadUint16()
		if err != nil {
			return nil, err
		}
		return ActiveCatchBlockData{CinfoRef: cinfo}, nil

	case Terminate:
		return TerminateData{}, nil

	case Specification:
		var d SpecificationData
		var err error
		if d.Specs, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.PCOffset, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if d.CinfoRef, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		d.Spec = make([]uint32, 0, d.Specs)
		for i := 0; i < int(d.Specs); i++ {
			v, err := s.ReadUint32()
			if err != nil {
				return nil, err
			}
			d.Spec = append(d.Spec, v)
		}
		return d, nil

	case CatchBlock32:
		var d CatchBlock32Data
		var err error
		if d.Unk0, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if d.CatchType, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if d.CatchPCOffset, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if d.CinfoRef, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		return d, nil
	}

	return nil, &InvalidActionError{Value: uint8(a.Kind), Offset: a.TableOffset}
}
