package dentalchart

// Arch is the jaw a tooth sits in.
type Arch string

const (
	ArchUpper Arch = "upper"
	ArchLower Arch = "lower"
)

// ToothType is the anatomical class driving the drawn silhouette.
type ToothType string

const (
	Molar          ToothType = "molar"
	Premolar       ToothType = "premolar"
	Canine         ToothType = "canine"
	LateralIncisor ToothType = "lateral_incisor"
	CentralIncisor ToothType = "central_incisor"
)

// ToothTypes lists every type in drawing order.
var ToothTypes = []ToothType{Molar, Premolar, Canine, LateralIncisor, CentralIncisor}

// Classification describes where a tooth is and what it looks like.
type Classification struct {
	Arch     Arch      `json:"arch"`
	Quadrant int       `json:"quadrant"`
	Type     ToothType `json:"tooth_type"`
}

// typeByPosition is indexed by distance from the distal end of a quadrant
// (0 = third molar, 7 = central incisor).
var typeByPosition = [8]ToothType{
	Molar, Molar, Molar,
	Premolar, Premolar,
	Canine,
	LateralIncisor,
	CentralIncisor,
}

// Classify derives arch, quadrant and type from an internal id. Ids outside
// 1..32 yield the zero Classification.
func Classify(internal int) Classification {
	if internal < 1 || internal > ToothCount {
		return Classification{}
	}
	quadrant := quadrantOf(internal)
	arch := ArchUpper
	if quadrant >= 3 {
		arch = ArchLower
	}
	// Quadrants 1 and 3 run distal to mesial as ids increase; 2 and 4 run
	// mesial to distal.
	offset := (internal - 1) % 8
	if quadrant == 2 || quadrant == 4 {
		offset = 7 - offset
	}
	return Classification{Arch: arch, Quadrant: quadrant, Type: typeByPosition[offset]}
}

func quadrantOf(internal int) int {
	return (internal-1)/8 + 1
}

// UpperRow returns internal ids of the upper arch in viewer left-to-right
// order (patient's right first).
func UpperRow() []int {
	row := make([]int, 0, 16)
	for id := 1; id <= 16; id++ {
		row = append(row, id)
	}
	return row
}

// LowerRow returns internal ids of the lower arch in viewer left-to-right
// order, aligned under UpperRow.
func LowerRow() []int {
	row := make([]int, 0, 16)
	for id := 32; id >= 17; id-- {
		row = append(row, id)
	}
	return row
}
