package collector

import (
	"io"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/types"
)

// UserKeyTablePropertiesCollector adapts a user-facing collector, which only
// sees user keys, to the internal collector interface.
type UserKeyTablePropertiesCollector struct {
	collector api.TablePropertiesCollector
}

var _ api.IntTblPropCollector = (*UserKeyTablePropertiesCollector)(nil)

func NewUserKeyTablePropertiesCollector(c api.TablePropertiesCollector) *UserKeyTablePropertiesCollector {
	return &UserKeyTablePropertiesCollector{
		collector: c,
	}
}

func (c *UserKeyTablePropertiesCollector) Name() string {
	return c.collector.Name()
}

func (c *UserKeyTablePropertiesCollector) InternalAdd(key, value []byte, fileSize uint64) error {
	ikey, err := types.ParseInternalKey(key)
	if err != nil {
		return &api.InvalidArgument{Msg: "invalid internal key"}
	}

	return c.collector.AddUserKey(ikey.UserKey, value, types.GetEntryType(ikey.Type), ikey.Sequence, fileSize)
}

func (c *UserKeyTablePropertiesCollector) Finish(p api.UserCollectedProperties) error {
	return c.collector.Finish(p)
}

func (c *UserKeyTablePropertiesCollector) ReadableProperties() api.UserCollectedProperties {
	return c.collector.ReadableProperties()
}

func (c *UserKeyTablePropertiesCollector) Close() error {
	if cl, ok := c.collector.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// UserKeyTablePropertiesCollectorFactory adapts a user-facing collector
// factory to the internal factory interface.
type UserKeyTablePropertiesCollectorFactory struct {
	factory api.TablePropertiesCollectorFactory
}

var _ api.IntTblPropCollectorFactory = (*UserKeyTablePropertiesCollectorFactory)(nil)

func NewUserKeyTablePropertiesCollectorFactory(f api.TablePropertiesCollectorFactory) *UserKeyTablePropertiesCollectorFactory {
	return &UserKeyTablePropertiesCollectorFactory{
		factory: f,
	}
}

func (f *UserKeyTablePropertiesCollectorFactory) Name() string {
	return f.factory.Name()
}

func (f *UserKeyTablePropertiesCollectorFactory) CreateIntTblPropCollector(ctx api.CollectorContext) (api.IntTblPropCollector, error) {
	c, err := f.factory.CreateTablePropertiesCollector(ctx)
	if err != nil {
		return nil, err
	}
	return NewUserKeyTablePropertiesCollector(c), nil
}

func (f *UserKeyTablePropertiesCollectorFactory) NeedSerialize() bool {
	return false
}
