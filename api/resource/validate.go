package resource

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/morikuni/failure/v2"
)

var machineName = regexp.MustCompile(`^[a-z0-9_]+$`)

// Validate reports every problem of d at once. Fetcher and transformer
// plugins are instantiated, and instances implementing plugin.Validator
// check their own settings.
func Validate[F, T any](d *Descriptor, fetchers *plugin.Registry[F], transformers *plugin.Registry[T]) error {
	var errs *multierror.Error

	if !machineName.MatchString(d.Name) {
		errs = multierror.Append(errs, invalid(d, "name",
			"must contain only lowercase letters, numbers and underscores"))
	}

	if d.Fetcher.PluginID == "" {
		errs = multierror.Append(errs, invalid(d, "fetcher.plugin_id", "is required"))
	} else if err := validatePlugin(fetchers, d.Fetcher); err != nil {
		errs = multierror.Append(errs, invalid(d, "fetcher", err.Error()))
	}

	used := make(map[string]bool)
	for i, step := range d.Transformers() {
		if step.PluginID == "" {
			continue
		}
		field := fmt.Sprintf("transformer.plugins[%d]", i)

		def, ok := transformers.Definition(step.PluginID)
		if ok && used[step.PluginID] && !def.SupportsMultiple {
			errs = multierror.Append(errs, invalid(d, field,
				fmt.Sprintf("%s can only be used once", step.PluginID)))
		}
		used[step.PluginID] = true

		if err := validatePlugin(transformers, step); err != nil {
			errs = multierror.Append(errs, invalid(d, field, err.Error()))
		}
	}

	if _, err := d.ExpiresAt(time.Now()); err != nil {
		errs = multierror.Append(errs, invalid(d, "caching.expired",
			fmt.Sprintf("%q is not a valid expiration", d.Caching.Expired)))
	}

	for _, tag := range d.Caching.Tags {
		if _, ok := ParseTag(tag); !ok {
			errs = multierror.Append(errs, invalid(d, "caching.tags",
				fmt.Sprintf("%q is not in [entity-type]:[entity-id] format", tag)))
		}
	}

	return errs.ErrorOrNil()
}

func validatePlugin[P any](r *plugin.Registry[P], c plugin.Config) error {
	instance, err := r.CreateInstance(c.PluginID, c.Settings)
	if err != nil {
		return describe(c.PluginID, err)
	}
	if v, ok := any(instance).(plugin.Validator); ok {
		if err := v.Validate(); err != nil {
			return describe(c.PluginID, err)
		}
	}
	return nil
}

// describe prefers the failure message of err
func describe(id string, err error) error {
	if msg := failure.MessageOf(err); msg != "" {
		return fmt.Errorf("%s: %s", id, msg)
	}
	return fmt.Errorf("%s: %w", id, err)
}

func invalid(d *Descriptor, field, msg string) error {
	return failure.New(ErrInvalidDescriptor,
		failure.Message(strings.TrimSpace(field+" "+msg)),
		failure.Context{"resource": d.Name, "field": field},
	)
}
