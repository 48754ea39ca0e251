package config

// ids.go - реестр кластеров: RPC-эндпоинты, программы и адреса групп

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed ids.yaml
var defaultRegistry []byte

// ClusterIDs - идентификаторы одного кластера
type ClusterIDs struct {
	RPCURL       string            `yaml:"rpc_url"`
	GatewayURL   string            `yaml:"gateway_url"`
	ProgramID    string            `yaml:"program_id"`
	DexProgramID string            `yaml:"dex_program_id"`
	Groups       map[string]string `yaml:"groups"` // имя группы → адрес
}

// Registry - все известные кластеры
type Registry struct {
	Clusters map[string]ClusterIDs `yaml:"clusters"`
}

// ParseRegistry разбирает реестр из YAML
func ParseRegistry(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse cluster registry: %w", err)
	}
	if len(r.Clusters) == 0 {
		return nil, fmt.Errorf("cluster registry has no clusters")
	}
	return &r, nil
}

// DefaultRegistry возвращает встроенный реестр
func DefaultRegistry() *Registry {
	r, err := ParseRegistry(defaultRegistry)
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRegistry читает реестр из файла; пустой путь - встроенный реестр
//
// Кластеры из файла дополняют встроенные, совпадающие имена заменяются целиком.
func LoadRegistry(path string) (*Registry, error) {
	r := DefaultRegistry()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cluster registry %s: %w", path, err)
	}
	custom, err := ParseRegistry(data)
	if err != nil {
		return nil, err
	}
	for name, ids := range custom.Clusters {
		r.Clusters[name] = ids
	}
	return r, nil
}

// Cluster возвращает идентификаторы кластера
func (r *Registry) Cluster(name string) (ClusterIDs, error) {
	ids, ok := r.Clusters[name]
	if !ok {
		return ClusterIDs{}, fmt.Errorf("unknown cluster %q (known: %v)", name, r.Names())
	}
	return ids, nil
}

// Names возвращает отсортированные имена кластеров
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Clusters))
	for name := range r.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
