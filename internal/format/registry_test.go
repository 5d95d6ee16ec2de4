package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

func stubFormat(key string, detect bool, kinds ...model.AccountKind) Format {
	return Format{
		Key:          key,
		AccountKinds: kinds,
		Detect:       func(string) bool { return detect },
		Parse:        func(string) (*model.ParsedFile, error) { return &model.ParsedFile{}, nil },
	}
}

func TestRegistry_Resolve(t *testing.T) {
	reg, err := NewRegistry(
		stubFormat("first_checking", false, model.KindChecking),
		stubFormat("second_checking", true, model.KindChecking),
		stubFormat("third_checking", true, model.KindChecking),
		stubFormat("card", true, model.KindCreditCard),
	)
	require.NoError(t, err)

	tests := []struct {
		wantErr  error
		name     string
		kind     model.AccountKind
		override string
		want     string
	}{
		{name: "first detecting candidate wins", kind: model.KindChecking, want: "second_checking"},
		{name: "narrowed by kind", kind: model.KindCreditCard, want: "card"},
		{name: "override used verbatim", kind: model.KindCreditCard, override: "first_checking", want: "first_checking"},
		{name: "unknown override", kind: model.KindChecking, override: "nope", wantErr: common.ErrUnknownFormat},
		{name: "no candidate for kind", kind: model.KindPayroll, wantErr: common.ErrNoMatchingFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := reg.Resolve("statement.csv", tt.kind, tt.override)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Key)
		})
	}
}

func TestRegistry_NoFallbackWhenNothingDetects(t *testing.T) {
	reg, err := NewRegistry(stubFormat("only", false, model.KindChecking))
	require.NoError(t, err)

	_, err = reg.Resolve("statement.csv", model.KindChecking, "")
	assert.ErrorIs(t, err, common.ErrNoMatchingFormat)
}

func TestRegistry_Register(t *testing.T) {
	reg, err := NewRegistry(stubFormat("a", true, model.KindChecking))
	require.NoError(t, err)

	assert.Error(t, reg.Register(stubFormat("a", true, model.KindChecking)))
	assert.Error(t, reg.Register(Format{Key: "incomplete"}))
	require.NoError(t, reg.Register(stubFormat("b", true, model.KindChecking)))

	var keys []string
	for _, f := range reg.Formats() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestRegistry_Shadowed(t *testing.T) {
	shadows := DefaultRegistry().Shadowed()
	assert.Equal(t, []Shadow{
		{Earlier: KeyBofAChecking, Later: KeyOFX, Kind: model.KindChecking},
		{Earlier: KeyBofACreditCard, Later: KeyOFX, Kind: model.KindCreditCard},
	}, shadows)
}

func TestDefaultRegistry_ResolvesFixtures(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name    string
		file    string
		content string
		kind    model.AccountKind
		want    string
	}{
		{name: "checking csv", file: "a.csv", content: checkingCSV, kind: model.KindChecking, want: KeyBofAChecking},
		{name: "checking ofx", file: "a.qfx", content: sampleBankOFX, kind: model.KindChecking, want: KeyOFX},
		{name: "card csv", file: "b.csv", content: creditCardCSV, kind: model.KindCreditCard, want: KeyBofACreditCard},
		{name: "line of credit csv", file: "c.csv", content: lineOfCreditCSV, kind: model.KindLineOfCredit, want: KeyBofALineOfCredit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := reg.Resolve(writeFile(t, tt.file, tt.content), tt.kind, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Key)
		})
	}

	_, err := reg.Resolve(writeFile(t, "card.csv", creditCardCSV), model.KindChecking, "")
	assert.ErrorIs(t, err, common.ErrNoMatchingFormat)
}
