package catalog

// Memory is a simple in-memory Catalog keyed by table name, built for
// tests (package memo/rule/task/xplan/optimizer all exercise their
// Insert/Optimize paths against one of these rather than a real system
// catalog) — grounded on the teacher test suite's dummyTable/dummyIndex
// pattern (sql/memo/rel_props_test.go), flattened into a single struct
// since this module's Catalog interface is already narrow.
type Memory struct {
	Pages   int
	tables  map[string]TableDescriptor
	byID    map[TableID]string
}

// NewMemory builds an empty in-memory catalog. pageSize is returned by
// PageSize(); 0 defaults to 8192.
func NewMemory(pageSize int) *Memory {
	if pageSize == 0 {
		pageSize = 8192
	}
	return &Memory{Pages: pageSize, tables: make(map[string]TableDescriptor), byID: make(map[TableID]string)}
}

// AddTable registers td under its own Name, indexed by ID as well so
// NameOf can resolve it back (package cost.Fetching needs a name to call
// LookupTable with).
func (m *Memory) AddTable(td TableDescriptor) {
	m.tables[td.Name] = td
	m.byID[td.ID] = td.Name
}

func (m *Memory) PageSize() int { return m.Pages }

func (m *Memory) HasTable(name string) bool {
	_, ok := m.tables[name]
	return ok
}

func (m *Memory) LookupTable(name string) (TableDescriptor, error) {
	td, ok := m.tables[name]
	if !ok {
		return TableDescriptor{}, ErrUnknownTable.New(name)
	}
	return td, nil
}

func (m *Memory) LookupColumn(table TableID, name string) (ColumnDescriptor, error) {
	tname, ok := m.byID[table]
	if !ok {
		return ColumnDescriptor{}, ErrUnknownTable.New(table)
	}
	td := m.tables[tname]
	for _, c := range td.Schema {
		if c.Name == name {
			return c, nil
		}
	}
	return ColumnDescriptor{}, ErrUnknownColumn.New(name, table)
}

func (m *Memory) IndexesOf(table TableID) ([]IndexDescriptor, error) {
	tname, ok := m.byID[table]
	if !ok {
		return nil, ErrUnknownTable.New(table)
	}
	return m.tables[tname].Indexes, nil
}

func (m *Memory) StatisticsOf(entity interface{}) (interface{}, error) {
	switch e := entity.(type) {
	case TableID:
		tname, ok := m.byID[e]
		if !ok {
			return nil, ErrUnknownTable.New(e)
		}
		return m.tables[tname].Statistics, nil
	case string:
		td, err := m.LookupTable(e)
		if err != nil {
			return nil, err
		}
		return td.Statistics, nil
	default:
		return nil, ErrUnknownTable.New(entity)
	}
}

// NameOf resolves a table id back to its name — used by cost.Fetching's
// tableName helper through the optional `named` interface.
func (m *Memory) NameOf(id TableID) string { return m.byID[id] }
