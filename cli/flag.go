package cli

import (
	"github.com/ka2n/dataprovider/api"
	"github.com/spf13/pflag"
)

// policyFlag overrides the configured error policy when set
type policyFlag struct {
	IsSet bool
	Value api.ErrorPolicy
}

// String implements pflag.Value.
func (f *policyFlag) String() string {
	return string(f.Value)
}

func (f *policyFlag) Set(value string) error {
	p, err := api.ParseErrorPolicy(value)
	if err != nil {
		return err
	}
	f.Value = p
	f.IsSet = true
	return nil
}

func (f *policyFlag) Type() string {
	return "policy"
}

var _ pflag.Value = &policyFlag{}
