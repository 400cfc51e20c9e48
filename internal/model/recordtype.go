package model

// RecordType is a four character code stored little-endian, so "TES4"
// reads back as the uint32 0x34534554.
type RecordType uint32

// FourCC packs a four character tag into a RecordType
func FourCC(tag string) RecordType {
	var b [4]byte
	copy(b[:], tag)
	return RecordType(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

// String returns the tag, with non-printable bytes shown as '?'
func (t RecordType) String() string {
	b := []byte{byte(t), byte(t >> 8), byte(t >> 16), byte(t >> 24)}
	for i, c := range b {
		if c < 0x20 || c > 0x7E {
			b[i] = '?'
		}
	}
	return string(b)
}

// Record types the decoder itself needs to recognise, plus the ones that
// establish traversal context for their children.
var (
	RecTES4 = FourCC("TES4") // file header
	RecGRUP = FourCC("GRUP") // group
	RecWRLD = FourCC("WRLD") // world space
	RecCELL = FourCC("CELL") // cell
	RecLAND = FourCC("LAND") // landscape
	RecREFR = FourCC("REFR") // object reference
	RecACHR = FourCC("ACHR") // actor reference
	RecACRE = FourCC("ACRE") // creature reference
	RecNAVM = FourCC("NAVM") // navmesh
	RecNAVI = FourCC("NAVI") // navmesh info
	RecPGRE = FourCC("PGRE") // placed grenade
	RecPHZD = FourCC("PHZD") // placed hazard
	RecDIAL = FourCC("DIAL") // dialogue topic
	RecINFO = FourCC("INFO") // dialogue response
	RecLTEX = FourCC("LTEX") // land texture
	RecSTAT = FourCC("STAT") // static
	RecNPC_ = FourCC("NPC_") // actor
	RecBOOK = FourCC("BOOK") // book
	RecGMST = FourCC("GMST") // game setting
	RecHAIR = FourCC("HAIR") // hair
)

// Subrecord types used by the decoder
var (
	SubHEDR = FourCC("HEDR")
	SubCNAM = FourCC("CNAM")
	SubSNAM = FourCC("SNAM")
	SubMAST = FourCC("MAST")
	SubDATA = FourCC("DATA")
	SubONAM = FourCC("ONAM")
	SubINTV = FourCC("INTV")
	SubINCC = FourCC("INCC")
	SubDELE = FourCC("DELE")
	SubOFST = FourCC("OFST")
	SubXXXX = FourCC("XXXX")
	SubEDID = FourCC("EDID")
	SubFULL = FourCC("FULL")
)

// Record flags
const (
	FlagESM        uint32 = 0x00000001 // TES4 only: master file
	FlagDeleted    uint32 = 0x00000020
	FlagLocalized  uint32 = 0x00000080 // TES4 only: strings live in companion tables
	FlagPersistent uint32 = 0x00000400
	FlagDisabled   uint32 = 0x00000800
	FlagIgnored    uint32 = 0x00001000
	FlagCompressed uint32 = 0x00040000
)
