// Package rules derives tag mappings for paths by composing declarative
// rule files found along the directory hierarchy.
//
// A rule file (one per directory, named "tags" by default) holds
// tab-delimited lines:
//
//	pattern<TAB>condition<TAB>key[=]<TAB>value1<TAB>value2...
//
// pattern is a regular expression matched (find-all) against the path
// relative to the rule file's directory, an empty pattern matching
// everywhere. condition is a CEL expression over the capture sequence,
// empty meaning true. A trailing "=" on the key marks the values as CEL
// expressions rather than literals. A key with no values removes the tag.
//
// Expressions see a single variable "_", the list of captured strings, and
// nothing of the host environment, so an untrusted rule file can at worst
// mangle its own tags.
package rules

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

const DefaultFileName = "tags"

// CaptureVar is the name rule expressions use for the capture sequence.
const CaptureVar = "_"

const exprDesignator = "="

// Composer derives tag mappings for target paths. Rule files are loaded
// and parsed at most once per directory for the lifetime of the Composer.
type Composer struct {
	// Root is the outermost directory consulted for rule files. Targets
	// must live underneath it.
	Root string
	// FileName is the per-directory rule file name, DefaultFileName if empty.
	FileName string

	initOnce sync.Once
	initErr  error
	env      *cel.Env
	cache    map[string][]rule
}

type rule struct {
	pattern *regexp.Regexp
	cond    cel.Program // nil means always true
	key     string
	values  []value

	file string
	line int
}

type value struct {
	raw  string
	prog cel.Program // non-nil when the rule's values are expressions
}

func (c *Composer) init() error {
	c.initOnce.Do(func() {
		if c.FileName == "" {
			c.FileName = DefaultFileName
		}
		c.cache = map[string][]rule{}
		c.env, c.initErr = cel.NewEnv(cel.Variable(CaptureVar, cel.ListType(cel.StringType)))
	})
	return c.initErr
}

// Compose folds the rule files of every ancestor of path, from Root down
// to path's own directory, into one tag mapping. A nearer rule for a key
// fully replaces a farther one. A key mapped to no values means the tag
// should be removed.
//
// Bad rules and bad rule files are skipped with a diagnostic, never
// failing the whole composition.
func (c *Composer) Compose(path string) (map[string][]string, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("init expression env: %w", err)
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("make abs: %w", err)
	}
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return nil, fmt.Errorf("make root abs: %w", err)
	}
	if rel, err := filepath.Rel(root, path); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("path %q not under root %q", path, root)
	}

	mapping := map[string][]string{}
	for _, dir := range ancestors(root, filepath.Dir(path)) {
		rules, err := c.rulesFor(dir)
		if err != nil {
			slog.Warn("reading rule file", "dir", dir, "err", err)
			continue
		}

		rel, _ := filepath.Rel(dir, path)
		rel = filepath.ToSlash(rel)

		for i := range rules {
			r := &rules[i]
			caps := r.captures(rel)
			if len(caps) == 0 {
				continue
			}
			ok, err := r.evalCond(caps)
			if err != nil {
				slog.Warn("skipping rule", "file", r.file, "line", r.line, "err", err)
				continue
			}
			if !ok {
				continue
			}
			vals, err := r.evalValues(caps)
			if err != nil {
				slog.Warn("dropping rule values", "file", r.file, "line", r.line, "err", err)
			}
			mapping[r.key] = vals
		}
	}
	return mapping, nil
}

func (c *Composer) rulesFor(dir string) ([]rule, error) {
	if rules, ok := c.cache[dir]; ok {
		return rules, nil
	}
	rules, err := parseRuleFile(c.env, filepath.Join(dir, c.FileName))
	c.cache[dir] = rules
	return rules, err
}

// ancestors lists the directories from root down to dir, inclusive.
func ancestors(root, dir string) []string {
	var out []string
	for d := dir; ; d = filepath.Dir(d) {
		out = append(out, d)
		if d == root || d == filepath.Dir(d) {
			break
		}
	}
	slices.Reverse(out)
	return out
}

func parseRuleFile(env *cel.Env, path string) ([]rule, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open rule file: %w", err)
	}
	defer f.Close()

	var rules []rule
	scanner := bufio.NewScanner(f)
	for i := 1; scanner.Scan(); i++ {
		line := scanner.Text()
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			continue
		}

		r := rule{file: path, line: i}

		r.pattern, err = regexp.Compile(fields[0])
		if err != nil {
			slog.Warn("skipping rule with invalid pattern", "file", path, "line", i, "rule", line, "err", err)
			continue
		}

		if cond := fields[1]; cond != "" {
			r.cond, err = compileExpr(env, cond)
			if err != nil {
				slog.Warn("skipping rule with invalid condition", "file", path, "line", i, "rule", line, "err", err)
				continue
			}
		}

		r.key = strings.TrimSuffix(fields[2], exprDesignator)
		if r.key == "" {
			slog.Warn("skipping rule with empty key", "file", path, "line", i, "rule", line)
			continue
		}
		exprs := strings.HasSuffix(fields[2], exprDesignator)

		for _, raw := range fields[3:] {
			if !exprs {
				r.values = append(r.values, value{raw: raw})
				continue
			}
			prog, err := compileExpr(env, raw)
			if err != nil {
				slog.Warn("skipping invalid value expression", "file", path, "line", i, "rule", line, "err", err)
				continue
			}
			r.values = append(r.values, value{raw: raw, prog: prog})
		}

		rules = append(rules, r)
	}
	if err := scanner.Err(); err != nil {
		return rules, fmt.Errorf("scan rule file: %w", err)
	}
	return rules, nil
}

func compileExpr(env *cel.Env, src string) (cel.Program, error) {
	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", src, issues.Err())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", src, err)
	}
	return prog, nil
}

// captures produces the capture sequence for rel with find-all semantics.
// Each occurrence contributes its submatches, or the whole match when the
// pattern has no groups. A rule is eligible iff the result is non-empty,
// which an empty pattern guarantees for any path.
func (r *rule) captures(rel string) []string {
	matches := r.pattern.FindAllStringSubmatch(rel, -1)
	var caps []string
	for _, m := range matches {
		if len(m) == 1 {
			caps = append(caps, m[0])
			continue
		}
		caps = append(caps, m[1:]...)
	}
	return caps
}

func (r *rule) evalCond(caps []string) (bool, error) {
	if r.cond == nil {
		return true, nil
	}
	out, _, err := r.cond.Eval(map[string]any{CaptureVar: caps})
	if err != nil {
		return false, fmt.Errorf("eval condition: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, want bool", out.Value())
	}
	return b, nil
}

// evalValues evaluates the rule's value list. A failing value expression
// contributes nothing, the rest still apply. The joined failures come back
// as the error alongside the good values.
func (r *rule) evalValues(caps []string) ([]string, error) {
	var vals []string
	var errs []error
	for _, v := range r.values {
		if v.prog == nil {
			vals = append(vals, v.raw)
			continue
		}
		out, _, err := v.prog.Eval(map[string]any{CaptureVar: caps})
		if err != nil {
			errs = append(errs, fmt.Errorf("eval value %q: %w", v.raw, err))
			continue
		}
		s, ok := out.Value().(string)
		if !ok {
			errs = append(errs, fmt.Errorf("value %q returned %T, want string", v.raw, out.Value()))
			continue
		}
		vals = append(vals, s)
	}
	return vals, errors.Join(errs...)
}
