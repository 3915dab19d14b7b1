package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symtree/internal/symtree"
)

// Test Plan for the Java front-end:
// - package becomes an implicit module qualifying everything below it
// - class/interface/enum/record declarations with extends/implements
// - methods with return types and typed parameters, constructors
// - annotations belong to the header so docs above them attach
// - enum constant lists (with bodies) are skipped
// - anonymous classes are opaque and reported as unknown declarations

const javaFixture = "../../testdata/code/java/SaveFileController.java"

// Test: the SaveFileController fixture produces the expected tree
func TestJavaFrontend_Fixture(t *testing.T) {
	t.Parallel()

	res := parseFixture(t, javaFixture)
	assert.False(t, res.Partial, "diagnostics: %v", res.Diagnostics)
	assert.Equal(t, "java", res.Unit.Language)

	require.Len(t, res.Tree.Roots, 1)
	pkg := res.Tree.Roots[0]
	assert.Equal(t, symtree.KindModule, pkg.Kind)
	assert.Equal(t, "com.habitrpg.android.controllers", pkg.Name)
	require.Equal(t, []string{"SaveFileController"}, childNames(pkg))

	ctrl := symtree.Lookup(res.Tree, "com.habitrpg.android.controllers.SaveFileController")
	require.NotNil(t, ctrl)
	assert.Equal(t, symtree.KindClass, ctrl.Kind)
	assert.Equal(t, "Persists habit lists for each user.", ctrl.DocComment)
	assert.Equal(t, []string{"public"}, ctrl.Modifiers)
	assert.Equal(t, []symtree.Relation{
		{Kind: symtree.RelationExtends, Target: "SudoUser"},
		{Kind: symtree.RelationImplements, Target: "FileController"},
	}, ctrl.Relations)
	assert.Equal(t, []string{"SaveFileController", "getHabitList", "max", "Mode", "Listener", "Entry"}, childNames(ctrl))

	ctor := ctrl.Children[0]
	assert.Equal(t, symtree.KindMethod, ctor.Kind)
	assert.True(t, ctor.HasModifier(symtree.ModifierConstructor))
	assert.Equal(t, []symtree.Parameter{{Name: "context", Type: "Context"}}, ctor.Parameters)

	get := ctrl.Child("getHabitList")
	assert.Equal(t, "HabitList", get.ReturnType)
	assert.Equal(t, "Loads the habit list of one user.", get.DocComment)
	assert.Equal(t, []symtree.Parameter{
		{Name: "context", Type: "Context"},
		{Name: "userIndex", Type: "int"},
	}, get.Parameters)
	assert.Empty(t, get.Children)

	generic := ctrl.Child("max")
	assert.Equal(t, "T", generic.ReturnType)
	assert.True(t, generic.HasModifier(symtree.ModifierStatic))
	assert.Equal(t, []symtree.Parameter{{Name: "items", Type: "List<T>"}}, generic.Parameters)

	mode := ctrl.Child("Mode")
	assert.True(t, mode.HasModifier(symtree.ModifierEnum))
	assert.Equal(t, []string{"Mode", "flag"}, childNames(mode))
	assert.True(t, mode.Child("Mode").HasModifier(symtree.ModifierConstructor))

	listener := ctrl.Child("Listener")
	assert.Equal(t, symtree.KindInterface, listener.Kind)
	assert.Equal(t, []string{"onSaved", "onFailed"}, childNames(listener))
	assert.True(t, listener.Child("onFailed").HasModifier("default"))
	assert.Equal(t, "void", listener.Child("onSaved").ReturnType)

	entry := ctrl.Child("Entry")
	assert.True(t, entry.HasModifier(ModifierRecord))
	assert.Equal(t, []string{"name", "count"}, paramNames(entry))

	var unknown int
	for _, d := range res.Warnings() {
		if d.Code == symtree.CodeUnknownDeclaration {
			unknown++
		}
	}
	assert.Equal(t, 1, unknown)
	assert.Empty(t, symtree.Validate(res.Tree))
}

// Test: generic types, annotation types and fields
func TestJavaFrontend_Members(t *testing.T) {
	t.Parallel()

	src := `public abstract class Repo<K, V extends Comparable<V>> implements Store<K, V>, Closeable {
    protected final Map<K, List<V>> index = new HashMap<>(), spare = null;
    static { init(); }

    public abstract Optional<V> get(K key) throws IOException, TimeoutException;

    public synchronized <R> Map<K, R> mapAll(java.util.function.Function<? super V, ? extends R> fn, final int... limits) {
        return null;
    }

    int[] legacy()[] { return null; }
}

@interface Marker {
    String value() default "x";
    int[] ids() default {1, 2};
}
`
	res := parseSource(t, "java", src)
	require.Empty(t, res.Errors(), "%v", res.Diagnostics)
	require.Equal(t, []string{"Repo", "Marker"}, rootNames(res.Tree))

	repo := res.Tree.Roots[0]
	assert.Equal(t, []symtree.Relation{
		{Kind: symtree.RelationImplements, Target: "Store<K,V>"},
		{Kind: symtree.RelationImplements, Target: "Closeable"},
	}, repo.Relations)
	assert.Equal(t, []string{"get", "mapAll", "legacy"}, childNames(repo))

	get := repo.Child("get")
	assert.Equal(t, "Optional<V>", get.ReturnType)
	assert.Equal(t, "public abstract Optional<V> get(K key) throws IOException, TimeoutException", get.Signature)
	assert.Empty(t, get.Children)

	mapAll := repo.Child("mapAll")
	assert.Equal(t, "Map<K, R>", mapAll.ReturnType)
	assert.Equal(t, []symtree.Parameter{
		{Name: "fn", Type: "java.util.function.Function<? super V, ? extends R>"},
		{Name: "limits", Type: "int..."},
	}, mapAll.Parameters)
	assert.False(t, mapAll.Unparsed)

	marker := res.Tree.Roots[1]
	assert.Equal(t, symtree.KindInterface, marker.Kind)
	assert.True(t, marker.HasModifier(ModifierAnnotation))
	assert.Equal(t, []string{"value", "ids"}, childNames(marker))
}

// Test: an unterminated text block is reported and the tree stays partial
func TestJavaFrontend_UnterminatedTextBlock(t *testing.T) {
	t.Parallel()

	res := parseSource(t, "java", "class Q {\n  String s = \"\"\"\n    open\n")
	assert.True(t, res.Partial)

	codes := map[symtree.Code]int{}
	for _, d := range res.Errors() {
		codes[d.Code]++
	}
	assert.Equal(t, 1, codes[symtree.CodeLex])
	assert.Equal(t, 1, codes[symtree.CodeUnbalancedScope])

	q := symtree.Lookup(res.Tree, "Q")
	require.NotNil(t, q)
	assert.True(t, q.Partial)
}
