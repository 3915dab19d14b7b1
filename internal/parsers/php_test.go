package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symtree/internal/symtree"
)

// Test Plan for the PHP front-end:
// - Driver fixture: final class, methods with /** */ docs, typed params and return types
// - Interface and trait bodies with methods
// - Namespaces: implicit "namespace X;" and braced forms with "\" qualification
// - Enums, abstract methods, trait uses and implements lists
// - Foo::class and closures are not declarations; new class is opaque
// - Missing return type marks the header unparsed

const phpFixture = "../../testdata/code/php/php_test_sample.php"

// Test: the Driver fixture produces the expected tree
func TestPHPFrontend_Fixture(t *testing.T) {
	t.Parallel()

	res := parseFixture(t, phpFixture)
	assert.False(t, res.Partial, "diagnostics: %v", res.Diagnostics)
	assert.Equal(t, "php", res.Unit.Language)
	require.Equal(t, []string{"Driver", "MyInterface", "MyTrait"}, rootNames(res.Tree))

	driver := res.Tree.Roots[0]
	assert.Equal(t, symtree.KindClass, driver.Kind)
	assert.Equal(t, []string{"final"}, driver.Modifiers)
	assert.Equal(t, []symtree.Relation{{Kind: symtree.RelationExtends, Target: "AbstractSQLServerDriver"}}, driver.Relations)
	assert.Equal(t, []string{"connect", "constructDsn", "getConnectionOptionsDsn"}, childNames(driver))

	connect := driver.Child("connect")
	assert.Equal(t, symtree.KindMethod, connect.Kind)
	assert.Equal(t, "Driver::connect", connect.QualifiedName)
	assert.Equal(t, "{@inheritdoc}\n\n@return Connection", connect.DocComment)
	assert.Equal(t, []symtree.Parameter{{Name: "$params", Type: "array"}}, connect.Parameters)
	assert.Equal(t, []string{"public"}, connect.Modifiers)

	dsn := driver.Child("constructDsn")
	assert.Equal(t, "Constructs the Sqlsrv PDO DSN.\n\n@param mixed[]  $params\n@param string[] $connectionOptions\n\n@throws Exception", dsn.DocComment)
	assert.Equal(t, []symtree.Parameter{
		{Name: "$params", Type: "array", Default: "null"},
		{Name: "$connectionOptions", Type: "array"},
	}, dsn.Parameters)
	assert.Equal(t, "string", dsn.ReturnType)
	assert.Equal(t, "private function constructDsn(array $params=null, array $connectionOptions): string", dsn.Signature)
	assert.False(t, dsn.Unparsed)

	iface := res.Tree.Roots[1]
	assert.Equal(t, symtree.KindInterface, iface.Kind)
	assert.Equal(t, []string{"myMethod"}, childNames(iface))

	trait := res.Tree.Roots[2]
	assert.Equal(t, symtree.KindTrait, trait.Kind)
	set := trait.Child("setBackgroundImage")
	require.NotNil(t, set)
	assert.Equal(t, []symtree.Parameter{{Name: "$objDrawing", Type: "Drawing"}}, set.Parameters)
	assert.Equal(t, "self", set.ReturnType)

	assert.Empty(t, symtree.Validate(res.Tree))
}

// Test: implicit and braced namespaces
func TestPHPFrontend_Namespaces(t *testing.T) {
	t.Parallel()

	src := `<?php
namespace App\Models;

use Illuminate\Database\Eloquent\Model;
use function App\Support\helper;

class User extends Model implements \JsonSerializable, Arrayable
{
    use HasFactory, Notifiable;

    public static function find(int $id): ?self { return null; }
}

function helper_fn() {}

namespace App\Http;

interface Handler extends Base, \Countable
{
    public function handle(Request $r): Response;
}
`
	res := parseSource(t, "php", src)
	require.Empty(t, res.Errors(), "%v", res.Diagnostics)
	require.Equal(t, []string{`App\Models`, `App\Http`}, rootNames(res.Tree))

	models := res.Tree.Roots[0]
	assert.Equal(t, symtree.KindModule, models.Kind)
	assert.True(t, models.HasModifier(symtree.ModifierNamespace))
	assert.Equal(t, []string{"User", "helper_fn"}, childNames(models))

	user := symtree.Lookup(res.Tree, `App\Models\User`)
	require.NotNil(t, user)
	assert.Equal(t, []symtree.Relation{
		{Kind: symtree.RelationExtends, Target: "Model"},
		{Kind: symtree.RelationImplements, Target: `\JsonSerializable`},
		{Kind: symtree.RelationImplements, Target: "Arrayable"},
		{Kind: symtree.RelationUses, Target: "HasFactory"},
		{Kind: symtree.RelationUses, Target: "Notifiable"},
	}, user.Relations)

	find := symtree.Lookup(res.Tree, `App\Models\User::find`)
	require.NotNil(t, find)
	assert.Equal(t, []string{"public", "static"}, find.Modifiers)
	assert.Equal(t, "?self", find.ReturnType)

	assert.Equal(t, symtree.KindFunction, models.Child("helper_fn").Kind)

	handle := symtree.Lookup(res.Tree, `App\Http\Handler::handle`)
	require.NotNil(t, handle)
	assert.Equal(t, "Response", handle.ReturnType)
	assert.Equal(t, 20, handle.Span.End.Line)
	assert.Empty(t, handle.Children)
}

// Test: braced namespaces and the global namespace block
func TestPHPFrontend_BracedNamespace(t *testing.T) {
	t.Parallel()

	src := `<?php
namespace Lib {
    abstract class Shape {
        abstract public function area(): float;
        final protected function name(): string { return static::class; }
    }
}
namespace {
    function main() {}
}
`
	res := parseSource(t, "php", src)
	require.Empty(t, res.Errors(), "%v", res.Diagnostics)
	require.Equal(t, []string{"Lib", "main"}, rootNames(res.Tree))

	shape := symtree.Lookup(res.Tree, `Lib\Shape`)
	require.NotNil(t, shape)
	assert.Equal(t, []string{"abstract"}, shape.Modifiers)
	assert.Equal(t, []string{"area", "name"}, childNames(shape))
	assert.Equal(t, []string{"abstract", "public"}, shape.Child("area").Modifiers)
}

// Test: enums, closures, anonymous classes and ::class
func TestPHPFrontend_Expressions(t *testing.T) {
	t.Parallel()

	src := `<?php
enum Suit: string implements HasLabel
{
    case Hearts = 'H';

    public function label(): string
    {
        return match ($this) { Suit::Hearts => 'hearts' };
    }
}

$name = Suit::class;
$fn = function ($x) use ($name) { return $x; };
$arrow = static fn($y) => $y * 2;
$obj = new class($fn) extends Base {
    public function hidden() {}
};
`
	res := parseSource(t, "php", src)
	require.Empty(t, res.Errors(), "%v", res.Diagnostics)
	require.Equal(t, []string{"Suit"}, rootNames(res.Tree))

	suit := res.Tree.Roots[0]
	assert.Equal(t, symtree.KindClass, suit.Kind)
	assert.True(t, suit.HasModifier(symtree.ModifierEnum))
	assert.Equal(t, []symtree.Relation{{Kind: symtree.RelationImplements, Target: "HasLabel"}}, suit.Relations)
	assert.Equal(t, []string{"label"}, childNames(suit))

	var unknown []symtree.Diagnostic
	for _, d := range res.Warnings() {
		if d.Code == symtree.CodeUnknownDeclaration {
			unknown = append(unknown, d)
		}
	}
	assert.Len(t, unknown, 1)
}

// Test: a missing return type keeps the header but marks it unparsed
func TestPHPFrontend_UnparsedSignature(t *testing.T) {
	t.Parallel()

	res := parseSource(t, "php", "<?php\nfunction sum($a, $b): {\n    return $a + $b;\n}\n")
	require.Len(t, res.Tree.Roots, 1)
	sum := res.Tree.Roots[0]
	assert.Equal(t, "sum", sum.Name)
	assert.True(t, sum.Unparsed)
	assert.Equal(t, []string{"$a", "$b"}, paramNames(sum))
	assert.Equal(t, 4, sum.Span.End.Line)

	require.Len(t, res.Warnings(), 1)
	assert.Equal(t, symtree.CodeUnparsedSignature, res.Warnings()[0].Code)
	assert.False(t, res.Partial)
}

// Test: inline markup around code and input without open tags
func TestPHPFrontend_Markup(t *testing.T) {
	t.Parallel()

	src := "<html><?php if ($x) { ?>\n<b>{</b>\n<?php } ?>\n<?php class View {} ?>\n</html>"
	res := parseSource(t, "php", src)
	require.Empty(t, res.Errors(), "%v", res.Diagnostics)
	assert.Equal(t, []string{"View"}, rootNames(res.Tree))

	bare := parseSource(t, "php", "class Bare { function f() {} }")
	assert.Equal(t, []string{"Bare"}, rootNames(bare.Tree))
	assert.Equal(t, []string{"f"}, childNames(bare.Tree.Roots[0]))
}
