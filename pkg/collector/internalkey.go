package collector

import (
	"strconv"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/props"
	"github.com/adammck/sstprops/pkg/types"
)

// InternalKeyPropertiesCollector counts the tombstones and merge operands in a
// table. Every table gets one.
type InternalKeyPropertiesCollector struct {
	deletedKeys   uint64
	mergeOperands uint64
}

var _ api.IntTblPropCollector = (*InternalKeyPropertiesCollector)(nil)

func (c *InternalKeyPropertiesCollector) Name() string {
	return "InternalKeyPropertiesCollector"
}

func (c *InternalKeyPropertiesCollector) InternalAdd(key, value []byte, fileSize uint64) error {
	ikey, err := types.ParseInternalKey(key)
	if err != nil {
		return &api.InvalidArgument{Msg: "invalid internal key"}
	}

	switch types.GetEntryType(ikey.Type) {
	case api.EntryDelete, api.EntrySingleDelete, api.EntryRangeDeletion:
		c.deletedKeys++
	case api.EntryMerge, api.EntryMergeIndex:
		c.mergeOperands++
	}

	return nil
}

func (c *InternalKeyPropertiesCollector) Finish(p api.UserCollectedProperties) error {
	props.PutUint64(p, props.DeletedKeys, c.deletedKeys)
	props.PutUint64(p, props.MergeOperands, c.mergeOperands)
	return nil
}

func (c *InternalKeyPropertiesCollector) ReadableProperties() api.UserCollectedProperties {
	return api.UserCollectedProperties{
		props.DeletedKeys:   []byte(strconv.FormatUint(c.deletedKeys, 10)),
		props.MergeOperands: []byte(strconv.FormatUint(c.mergeOperands, 10)),
	}
}

func (c *InternalKeyPropertiesCollector) Close() error {
	return nil
}

type InternalKeyPropertiesCollectorFactory struct{}

var _ api.IntTblPropCollectorFactory = InternalKeyPropertiesCollectorFactory{}

func (InternalKeyPropertiesCollectorFactory) Name() string {
	return "InternalKeyPropertiesCollectorFactory"
}

func (InternalKeyPropertiesCollectorFactory) CreateIntTblPropCollector(api.CollectorContext) (api.IntTblPropCollector, error) {
	return &InternalKeyPropertiesCollector{}, nil
}

func (InternalKeyPropertiesCollectorFactory) NeedSerialize() bool {
	return false
}
