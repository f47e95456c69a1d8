package cpu

const (
	LIMB_BITS = 64 // Default limb size.
)

// Register is a wide register: an ordered sequence of fixed size limbs,
// least significant limb first.
//
// Only the security tag of a wide register has defined behaviour; there is
// no arithmetic beyond the accumulator width.
type Register struct {
	Width    int      // Advertised width in bits.
	LimbBits int      // Bits per limb, 1 to 64.
	Limbs    []uint64 // Limb values, least significant first.
}

// TagSpec locates a security tag inside the most significant limb.
type TagSpec struct {
	Shift int // Bit position of the tag's least significant bit.
	Bits  int // Tag size in bits.
}

// WideProfile is a named wide register layout with its expected tag.
type WideProfile struct {
	Name     string
	Width    int
	LimbBits int
	Tag      TagSpec
	Expected uint64
}

var (
	// SCSA120 is the 120-bit register: two limbs, an 8-bit tag at the top
	// of the high limb.
	SCSA120 = WideProfile{Name: "scsa120", Width: 120, LimbBits: LIMB_BITS, Tag: TagSpec{Shift: 56, Bits: 8}, Expected: 0xFF}
	// SCSA1220 is the 1220-bit register: twenty limbs, a 16-bit tag at the
	// top of the high limb.
	SCSA1220 = WideProfile{Name: "scsa1220", Width: 1220, LimbBits: LIMB_BITS, Tag: TagSpec{Shift: 48, Bits: 16}, Expected: 0xFFFF}
)

func limbMask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// NewRegister creates a zeroed wide register with ceil(width / limbBits)
// limbs.
func NewRegister(width, limbBits int) (reg *Register, err error) {
	if width < 1 {
		err = ErrWidthInvalid
		return
	}
	if limbBits < 1 || limbBits > 64 {
		err = ErrLimbInvalid
		return
	}

	reg = &Register{
		Width:    width,
		LimbBits: limbBits,
		Limbs:    make([]uint64, (width+limbBits-1)/limbBits),
	}
	return
}

// NewRegister creates a zeroed register for the profile.
func (wp WideProfile) NewRegister() (*Register, error) {
	return NewRegister(wp.Width, wp.LimbBits)
}

// SetLimb sets limb n, truncated to the limb size.
func (reg *Register) SetLimb(n int, value uint64) (err error) {
	if n < 0 || n >= len(reg.Limbs) {
		err = ErrLimbInvalid
		return
	}
	reg.Limbs[n] = value & limbMask(reg.LimbBits)
	return
}

// Top returns the most significant limb.
func (reg *Register) Top() uint64 {
	return reg.Limbs[len(reg.Limbs)-1]
}

// check validates a tag range against the limb size.
func (reg *Register) check(spec TagSpec) (err error) {
	if spec.Bits < 1 || spec.Shift < 0 || spec.Shift+spec.Bits > reg.LimbBits {
		err = ErrTagInvalid
	}
	return
}

// Tag returns the security tag.
func (reg *Register) Tag(spec TagSpec) (tag uint64, err error) {
	err = reg.check(spec)
	if err != nil {
		return
	}
	tag = (reg.Top() >> spec.Shift) & limbMask(spec.Bits)
	return
}

// SetTag replaces the security tag, leaving the other bits of the most
// significant limb untouched.
func (reg *Register) SetTag(spec TagSpec, tag uint64) (err error) {
	err = reg.check(spec)
	if err != nil {
		return
	}
	mask := limbMask(spec.Bits) << spec.Shift
	top := len(reg.Limbs) - 1
	reg.Limbs[top] = (reg.Limbs[top] &^ mask) | ((tag << spec.Shift) & mask)
	return
}

// VerifyTag compares the tag sub-range only. An invalid range never
// verifies.
func (reg *Register) VerifyTag(spec TagSpec, expected uint64) bool {
	tag, err := reg.Tag(spec)
	if err != nil {
		return false
	}
	return tag == expected&limbMask(spec.Bits)
}
