package core

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// DecodeDocument decodes doc.Data into out, a pointer to a struct tagged with `doc:"field"`.
// Numbers are accepted in any numeric representation the stores hand back.
func DecodeDocument(doc Document, out interface{}, hooks ...mapstructure.DecodeHookFunc) error {
	hooks = append(hooks, mapstructure.StringToTimeHookFunc(time.RFC3339Nano))
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(hooks...),
		WeaklyTypedInput: true,
		TagName:          "doc",
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "creating document decoder")
	}
	if err = dec.Decode(map[string]interface{}(doc.Data)); err != nil {
		return errors.Wrapf(err, "decoding document %q", doc.ID)
	}
	return nil
}
