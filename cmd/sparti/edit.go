package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/sparti"
	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/editor"
	"github.com/aretw0/sparti/pkg/git"
	"github.com/aretw0/sparti/pkg/registry"
	"github.com/aretw0/sparti/pkg/schema"
)

var editFollow bool

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a document interactively",
	Long: `Walk the fields of a document and edit them one prompt at a time. Each
prompt is a focused field: its draft is committed when the prompt is
answered. Nothing is stored until Save. With --follow, changes written by
others are merged in while you edit; the field you are typing in keeps your
text.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		service, ctx := openService()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		sess, err := service.Edit(ctx, id, editor.WithConfirmer(confirmer))
		if err != nil {
			fatal("Failed to open document", err)
		}
		defer sess.Close()

		if editFollow {
			if err := service.Follow(ctx, sess, id); err != nil && !errors.Is(err, core.ErrUnsupported) {
				warn(fmt.Errorf("live updates disabled: %w", err))
			}
		}

		loop := &editLoop{svc: service, ctx: ctx, id: id, sess: sess}
		if err := loop.editObject(nil, true); err != nil && !errors.Is(err, errAborted) {
			fatal("Edit failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().BoolVar(&editFollow, "follow", true, "Merge concurrent changes while editing")
}

type editLoop struct {
	svc  *core.Service
	ctx  context.Context
	id   string
	sess *editor.Session
}

func child(path []string, seg string) []string {
	return append(append([]string(nil), path...), seg)
}

func title(path []string) string {
	if len(path) == 0 {
		return "Fields"
	}
	return strings.Join(path, ".")
}

func preview(v schema.Value) string {
	r := []rune(schema.Format(v))
	if len(r) > 40 {
		return string(r[:37]) + "..."
	}
	return string(r)
}

func (l *editLoop) value(path []string) (schema.Value, bool) {
	return schema.Lookup(l.sess.Document(), path)
}

// editObject runs the menu of the object at path until Back, Save+Quit or
// Quit is chosen.
func (l *editLoop) editObject(path []string, top bool) error {
	for {
		obj, err := l.sess.Object(path...)
		if err != nil {
			return err
		}
		v, _ := l.value(path)
		doc, _ := v.(schema.Document)

		keys := l.orderedKeys(path, obj.Keys())
		options := make([]string, 0, len(keys)+5)
		for _, k := range keys {
			options = append(options, fmt.Sprintf("%s [%s] %s", schema.Label(k), schema.Classify(doc[k]), preview(doc[k])))
		}
		actions := []string{"+ Add field", "- Remove field", "~ Change field kind"}
		if top {
			actions = append(actions, "Save", "Quit")
		} else {
			actions = append(actions, "Back")
		}

		i, err := askSelect(title(path), append(options, actions...))
		if err != nil {
			return err
		}
		if i < len(keys) {
			l.report(l.editAt(child(path, keys[i])))
			continue
		}

		switch actions[i-len(keys)] {
		case "+ Add field":
			name, err := askInput("Field name", "", func(s string) error {
				if v := obj.Validate(s); !v.Valid {
					return errors.New(v.Error)
				}
				return nil
			})
			if err != nil {
				l.report(err)
				continue
			}
			kind, err := askKind("Kind")
			if err != nil {
				l.report(err)
				continue
			}
			l.report(obj.Add(name, kind))
		case "- Remove field":
			key, err := l.pickKey("Remove", keys)
			if err == nil {
				err = obj.Remove(key)
			}
			l.report(err)
		case "~ Change field kind":
			key, err := l.pickKey("Change", keys)
			if err != nil {
				l.report(err)
				continue
			}
			kind, err := askKind("New kind")
			if err == nil {
				err = obj.ChangeKind(key, kind)
			}
			l.report(err)
		case "Save":
			l.report(l.save())
		case "Quit":
			if len(l.sess.Pending()) > 0 && !confirm("Discard unsaved changes?") {
				continue
			}
			return nil
		case "Back":
			return nil
		}
	}
}

// orderedKeys puts reserved fields first at the top level.
func (l *editLoop) orderedKeys(path []string, keys []string) []string {
	if len(path) > 0 {
		return keys
	}
	fields := l.sess.Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Key
	}
	return out
}

func (l *editLoop) pickKey(verb string, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", errors.New("no fields")
	}
	i, err := askSelect(verb+" which field?", keys)
	if err != nil {
		return "", err
	}
	return keys[i], nil
}

func (l *editLoop) editAt(path []string) error {
	v, ok := l.value(path)
	if !ok {
		return editor.ErrNoSuchField
	}
	switch schema.Classify(v) {
	case schema.KindObject:
		return l.editObject(path, false)
	case schema.KindArray:
		return l.editArray(path)
	}
	return l.editLeaf(path)
}

// editArray runs the menu of the array at path.
func (l *editLoop) editArray(path []string) error {
	for {
		arrEd, err := l.sess.Array(path...)
		if err != nil {
			return err
		}
		v, _ := l.value(path)
		arr, _ := v.(schema.Array)

		options := make([]string, 0, len(arr)+5)
		for i, item := range arr {
			options = append(options, fmt.Sprintf("%d [%s] %s", i+1, item.Kind(), preview(item)))
		}
		actions := []string{"+ Add item", "- Remove item", "^ Move item", "~ Change item kind", "Back"}

		i, err := askSelect(title(path), append(options, actions...))
		if err != nil {
			return err
		}
		if i < len(arr) {
			l.report(l.editAt(child(path, strconv.Itoa(i))))
			continue
		}

		switch actions[i-len(arr)] {
		case "+ Add item":
			kind, err := askKind("Kind")
			if err == nil {
				_, err = arrEd.Add(kind)
			}
			l.report(err)
		case "- Remove item":
			idx, err := l.pickIndex("Remove", arrEd.Len())
			if err == nil {
				err = arrEd.Remove(idx)
			}
			l.report(err)
		case "^ Move item":
			from, err := l.pickIndex("Move", arrEd.Len())
			if err != nil {
				l.report(err)
				continue
			}
			to, err := askInput("New position", strconv.Itoa(from+1), func(s string) error {
				if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= 1 && n <= arrEd.Len() {
					return nil
				}
				return fmt.Errorf("expected a position between 1 and %d", arrEd.Len())
			})
			if err != nil {
				l.report(err)
				continue
			}
			n, _ := strconv.Atoi(strings.TrimSpace(to))
			l.report(arrEd.Reorder(from, n-1))
		case "~ Change item kind":
			idx, err := l.pickIndex("Change", arrEd.Len())
			if err != nil {
				l.report(err)
				continue
			}
			kind, err := askKind("New kind")
			if err == nil {
				err = arrEd.ChangeKind(idx, kind)
			}
			l.report(err)
		case "Back":
			return nil
		}
	}
}

func (l *editLoop) pickIndex(verb string, n int) (int, error) {
	if n == 0 {
		return 0, errors.New("no items")
	}
	options := make([]string, n)
	for i := range options {
		options[i] = strconv.Itoa(i + 1)
	}
	return askSelect(verb+" which item?", options)
}

// editLeaf binds the field, focuses it for the duration of the prompt and
// blurs it with the answer.
func (l *editLoop) editLeaf(path []string) error {
	buf, err := l.sess.Bind(path...)
	if err != nil {
		return err
	}
	if err := buf.Focus(); err != nil {
		return err
	}

	widget := registry.WidgetFor(buf.Kind())
	if len(path) == 1 {
		if w := l.svc.Catalog().Widget(l.sess.Flavor(), path[0]); w != "" {
			widget = w
		}
	}
	label := schema.Label(path[len(path)-1])

	var text string
	switch {
	case buf.Kind() == schema.KindBoolean:
		var b bool
		b, err = askBool(label, buf.Text() == "true")
		text = strconv.FormatBool(b)
	case widget == registry.WidgetRichText:
		text, err = askMultiline(label+" (HTML)", buf.Text())
	case widget == registry.WidgetImage && buf.Kind() == schema.KindString:
		var uploaded bool
		uploaded, err = l.maybeUpload(buf, path, label)
		if uploaded || err != nil {
			buf.Close()
			return err
		}
		text, err = askInput(label+" URL", buf.Text(), nil)
	default:
		kind := buf.Kind()
		text, err = askInput(label, buf.Text(), func(s string) error {
			_, err := schema.Coerce(kind, s)
			return err
		})
	}
	if err != nil {
		// An abandoned prompt discards its draft.
		buf.Close()
		if errors.Is(err, errAborted) {
			return nil
		}
		return err
	}

	if err := buf.Input(text); err != nil {
		return err
	}
	return buf.Blur()
}

// maybeUpload offers to upload a local file into an image field. The field
// is only changed when the upload succeeds.
func (l *editLoop) maybeUpload(buf *editor.Buffer, path []string, label string) (bool, error) {
	name, err := askInput(label+": file to upload (empty to type a URL)", "", nil)
	if err != nil || strings.TrimSpace(name) == "" {
		return false, err
	}
	f, err := os.Open(strings.TrimSpace(name))
	if err != nil {
		return false, err
	}
	defer f.Close()

	url, err := l.sess.UploadInto(l.ctx, l.svc, path, filepath.Base(f.Name()), f)
	if err != nil {
		return false, fmt.Errorf("upload failed, %s unchanged: %w", label, err)
	}
	fmt.Println("Uploaded:", url)
	return true, nil
}

func (l *editLoop) save() error {
	patch := l.sess.Pending()
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	msg := sparti.FormatChangeReason(sparti.ChangeDocs, tenant, l.id+": "+git.DescribeFields(keys), "")
	doc, err := l.svc.Commit(core.WithChangeReason(l.ctx, msg), l.id, l.sess)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s (%d fields).\n", doc.ID, len(doc.Fields))
	return nil
}

// report prints non-fatal errors. Declined confirmations are not errors.
func (l *editLoop) report(err error) {
	switch {
	case err == nil, errors.Is(err, errAborted):
	case errors.Is(err, editor.ErrNotConfirmed):
		fmt.Println("Kept.")
	default:
		warn(err)
	}
}
