package fiscal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"12345678z", "12345678Z"},
		{" 12.345.678-Z ", "12345678Z"},
		{"x-1234567-l", "X1234567L"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Kind
	}{
		{"nif", "12345678Z", KindNIF},
		{"nif with wrong letter still classifies", "12345678A", KindNIF},
		{"nie x", "X1234567L", KindNIE},
		{"nie y", "Y1234567X", KindNIE},
		{"nie z", "Z1234567R", KindNIE},
		{"cif", "B12345674", KindCIF},
		{"cif letter control", "Q2826000H", KindCIF},
		{"too short", "1234567Z", KindInvalid},
		{"too long", "123456789Z", KindInvalid},
		{"empty", "", KindInvalid},
		{"letters only", "ABCDEFGHI", KindInvalid},
		{"cif with invalid org letter", "I1234567D", KindInvalid},
		{"cif with letter in digit block", "B12A45674", KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.input))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid nif", "12345678Z", true},
		{"valid nif zero padded", "00000000T", true},
		{"nif wrong check letter", "12345678A", false},
		{"valid nif lowercase with separators", "12.345.678-z", true},
		{"valid nie", "X1234567L", true},
		{"valid nie y prefix", "Y1234567X", true},
		{"valid nie z prefix", "Z1234567R", true},
		{"nie wrong check letter", "X1234567T", false},
		{"valid cif digit control", "B12345674", true},
		{"valid cif real world", "A08000143", true},
		{"cif digit where control differs", "B12345678", false},
		{"valid cif computed control", "B58957341", true},
		{"valid cif letter control", "Q2826000H", true},
		{"cif letter-only org rejects digit control", "Q28260008", false},
		{"cif either representation accepted", "B1234567D", true},
		{"empty", "", false},
		{"garbage", "not-an-id", false},
		{"too short", "1234567Z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.input))
		})
	}
}

// Validate is pure: repeated calls with the same input always agree.
func TestValidate_Deterministic(t *testing.T) {
	inputs := []string{"12345678Z", "X1234567L", "B12345674", "", "garbage", "12345678A"}
	for _, in := range inputs {
		first := Validate(in)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Validate(in), "input %q", in)
		}
	}
}

// A non-Invalid classification is necessary for validity.
func TestClassifyValidateAgree(t *testing.T) {
	inputs := []string{
		"12345678Z", "12345678A", "X1234567L", "X1234567T",
		"B12345674", "B12345678", "Q2826000H", "", "1234", "ABCDEFGHI",
	}
	for _, in := range inputs {
		if Validate(in) {
			assert.NotEqual(t, KindInvalid, Classify(in), "input %q", in)
		}
	}
}
