package selftest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/seclens/ratewatch"
)

func TestDiscoverToolsFromRegistry(t *testing.T) {
	handle := handleFor(map[string]ratewatch.Tool{
		ratewatch.ToolCompanySearch:    &fakeTool{name: ratewatch.ToolCompanySearch},
		ratewatch.ToolGetCompanyRating: &fakeTool{name: ratewatch.ToolGetCompanyRating},
	})

	got := discoverTools(context.Background(), handle, testLogger())
	want := []string{ratewatch.ToolCompanySearch, ratewatch.ToolGetCompanyRating}
	if !reflect.DeepEqual(got.Sorted(), want) {
		t.Errorf("discovered = %v, want %v", got.Sorted(), want)
	}
}

func TestDiscoverToolsMergesEnumeration(t *testing.T) {
	handle := &ratewatch.ServerHandle{
		Registry: map[string]ratewatch.Tool{
			ratewatch.ToolCompanySearch: &fakeTool{name: ratewatch.ToolCompanySearch},
		},
		ListTools: func(ctx context.Context) (map[string]ratewatch.Tool, error) {
			return map[string]ratewatch.Tool{
				ratewatch.ToolGetCompanyRating: &fakeTool{name: ratewatch.ToolGetCompanyRating},
			}, nil
		},
	}

	got := discoverTools(context.Background(), handle, testLogger())
	if len(got) != 2 {
		t.Errorf("discovered = %v, want both sources merged", got.Sorted())
	}
}

func TestDiscoverToolsEnumerationErrorTolerated(t *testing.T) {
	handle := &ratewatch.ServerHandle{
		Registry: map[string]ratewatch.Tool{
			ratewatch.ToolCompanySearch: &fakeTool{name: ratewatch.ToolCompanySearch},
		},
		ListTools: func(ctx context.Context) (map[string]ratewatch.Tool, error) {
			return nil, errors.New("enumeration broke")
		},
	}

	got := discoverTools(context.Background(), handle, testLogger())
	if !got.Contains(ratewatch.ToolCompanySearch) {
		t.Errorf("registry entries should survive an enumeration failure, got %v", got.Sorted())
	}
}

func TestDiscoverToolsNilHandle(t *testing.T) {
	got := discoverTools(context.Background(), nil, testLogger())
	if len(got) != 0 {
		t.Errorf("nil handle should discover nothing, got %v", got.Sorted())
	}
}

func TestCollectToolMapDropsBlankEntries(t *testing.T) {
	handle := handleFor(map[string]ratewatch.Tool{
		"":                           &fakeTool{},
		ratewatch.ToolCompanySearch:  nil,
		ratewatch.ToolRequestCompany: &fakeTool{name: ratewatch.ToolRequestCompany},
	})

	got := collectToolMap(context.Background(), handle, testLogger())
	if len(got) != 1 {
		t.Errorf("blank names and nil tools should be dropped, got %v", got)
	}
	if _, ok := got[ratewatch.ToolRequestCompany]; !ok {
		t.Error("valid entry missing")
	}
}

func TestCollectToolMapEnumerationOverridesRegistry(t *testing.T) {
	registryTool := &fakeTool{name: ratewatch.ToolCompanySearch}
	listedTool := &fakeTool{name: ratewatch.ToolCompanySearch}

	handle := &ratewatch.ServerHandle{
		Registry: map[string]ratewatch.Tool{ratewatch.ToolCompanySearch: registryTool},
		ListTools: func(ctx context.Context) (map[string]ratewatch.Tool, error) {
			return map[string]ratewatch.Tool{ratewatch.ToolCompanySearch: listedTool}, nil
		},
	}

	got := collectToolMap(context.Background(), handle, testLogger())
	if got[ratewatch.ToolCompanySearch] != ratewatch.Tool(listedTool) {
		t.Error("enumeration entry should win over the registry entry")
	}
}
