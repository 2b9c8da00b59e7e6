package emailblock

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBlocks caps how many blocks one email may carry.
const MaxBlocks = 100

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("weburl", func(fl validator.FieldLevel) bool {
		_, ok := SafeURL(fl.Field().String())
		return ok
	})
	return v
}

// ValidationError maps a field path such as "blocks[2].content.url" to a
// message.
type ValidationError map[string]string

func (v ValidationError) Error() string {
	if len(v) == 0 {
		return "validation error"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Fields returns the field paths in sorted order.
func (v ValidationError) Fields() []string {
	out := make([]string, 0, len(v))
	for k := range v {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate checks the structure. It returns nil or a ValidationError.
// Unknown block types are not rejected: they render as nothing.
func (s Structure) Validate() error {
	errs := ValidationError{}

	if len(s.Blocks) > MaxBlocks {
		errs["blocks"] = fmt.Sprintf("must contain at most %d blocks", MaxBlocks)
	}

	seen := make(map[string]int, len(s.Blocks))
	for i, b := range s.Blocks {
		prefix := fmt.Sprintf("blocks[%d]", i)

		if strings.TrimSpace(b.ID) == "" {
			errs[prefix+".id"] = "is required"
		} else if j, dup := seen[b.ID]; dup {
			errs[prefix+".id"] = fmt.Sprintf("duplicates blocks[%d].id", j)
		} else {
			seen[b.ID] = i
		}

		if b.BlockType == "" {
			errs[prefix+".blockType"] = "is required"
			continue
		}
		if b.OrderID < 0 {
			errs[prefix+".orderId"] = "must not be negative"
		}

		collect(errs, prefix+".styles", validate.Struct(b.Styles))

		if !b.BlockType.Known() {
			continue
		}
		if b.Content == nil {
			errs[prefix+".content"] = "is required"
			continue
		}
		if b.Content.blockType() != b.BlockType {
			errs[prefix+".content"] = fmt.Sprintf("does not match blockType %q", b.BlockType)
			continue
		}
		collect(errs, prefix+".content", validate.Struct(b.Content))
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func collect(dst ValidationError, prefix string, err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		dst[prefix] = err.Error()
		return
	}
	for _, fe := range verrs {
		dst[prefix+"."+fieldPath(fe)] = message(fe)
	}
}

// fieldPath converts "ButtonContent.url" to "url" and keeps nested paths
// such as "items[0].title".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without", "required_with":
		return "is required"
	case "url", "weburl":
		return "must be an http(s) or mailto URL"
	case "hexcolor":
		return "must be a hex colour"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must contain at least " + fe.Param() + " items"
	case "max":
		return "must contain at most " + fe.Param() + " items"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}
