package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamplePredicates(t *testing.T) {
	for _, tc := range []struct {
		name    string
		example *Beer
		want    []Predicate
	}{
		{"nil example", nil, nil},
		{"empty example matches all", &Beer{}, nil},
		{"zero score is no constraint", &Beer{Name: "ipa", Score: 0}, []Predicate{Contains(FieldName, "ipa")}},
		{"all fields", &Beer{Name: "IPA", Taste: "hoppy", Score: 7}, []Predicate{
			Contains(FieldName, "IPA"),
			Contains(FieldTaste, "hoppy"),
			Equal(FieldScore, 7),
		}},
		{"id and version are ignored", &Beer{ID: 3, Version: 2}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExamplePredicates(tc.example))
		})
	}
}

func TestPredicateValidation(t *testing.T) {
	for _, tc := range []struct {
		name string
		pred Predicate
		ok   bool
	}{
		{"contains name", Contains(FieldName, "x"), true},
		{"equal taste", Equal(FieldTaste, "x"), true},
		{"equal score", Equal(FieldScore, 3), true},
		{"contains on score", Contains(FieldScore, "3"), false},
		{"score as string", Equal(FieldScore, "3"), false},
		{"name as int", Equal(FieldName, 3), false},
		{"unknown field", Equal(Field("brewery"), "x"), false},
		{"unknown operator", Predicate{Field: FieldName, Op: "gt", Value: "x"}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePredicates([]Predicate{tc.pred})
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPredicate)
			}
		})
	}
}

func TestPredicateMatches(t *testing.T) {
	beer := &Beer{Name: "Hazy IPA", Taste: "Citrus and Pine", Score: 8}

	assert.True(t, Contains(FieldName, "ipa").matches(beer))
	assert.True(t, Contains(FieldName, "HAZY").matches(beer))
	assert.True(t, Contains(FieldTaste, "pine").matches(beer))
	assert.False(t, Contains(FieldTaste, "malt").matches(beer))
	assert.True(t, Equal(FieldName, "Hazy IPA").matches(beer))
	assert.False(t, Equal(FieldName, "hazy ipa").matches(beer))
	assert.True(t, Equal(FieldScore, 8).matches(beer))
	assert.False(t, Equal(FieldScore, 7).matches(beer))

	assert.True(t, matchesAll(nil, beer))
	assert.False(t, matchesAll([]Predicate{Contains(FieldName, "ipa"), Equal(FieldScore, 1)}, beer))
}

func TestWhereClause(t *testing.T) {
	where, args, err := DialectPostgres.whereClause(nil)
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args, err = DialectPostgres.whereClause([]Predicate{
		Contains(FieldName, "IPA"),
		Contains(FieldTaste, "50%_off"),
		Equal(FieldScore, 9),
	})
	require.NoError(t, err)
	assert.Equal(t, ` WHERE LOWER(name) LIKE ? ESCAPE '\' AND LOWER(taste) LIKE ? ESCAPE '\' AND score = ?`, where)
	assert.Equal(t, []any{"%ipa%", `%50\%\_off%`, 9}, args)

	where, _, err = DialectSQLite.whereClause([]Predicate{Contains(FieldName, "Äpfel")})
	require.NoError(t, err)
	assert.Equal(t, ` WHERE unicode_lower(name) LIKE ? ESCAPE '\'`, where)

	_, _, err = DialectPostgres.whereClause([]Predicate{Equal(Field("id"), 1)})
	assert.ErrorIs(t, err, ErrInvalidPredicate)
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM beers WHERE a = ? AND b = ? LIMIT ?`
	assert.Equal(t, `SELECT * FROM beers WHERE a = $1 AND b = $2 LIMIT $3`, DialectPostgres.rebind(q))
	assert.Equal(t, q, DialectSQLite.rebind(q))
}

func TestDialectFor(t *testing.T) {
	for driver, want := range map[string]Dialect{
		"postgres": DialectPostgres,
		"pgx":      DialectPostgres,
		"sqlite":   DialectSQLite,
	} {
		got, err := DialectFor(driver)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := DialectFor("mysql")
	assert.Error(t, err)
}

func TestNewMetadata(t *testing.T) {
	assert.Equal(t, Metadata{CurrentPage: 0, PageSize: 10}, NewMetadata(0, 0, 10))
	assert.Equal(t, Metadata{CurrentPage: 1, PageSize: 10, LastPage: 1, PageCount: 2, TotalRecords: 15}, NewMetadata(15, 1, 10))
	assert.Equal(t, 3, NewMetadata(30, 0, 10).PageCount)
	assert.Equal(t, 4, NewMetadata(31, 0, 10).PageCount)
}
