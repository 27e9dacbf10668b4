package registry

import (
	"fmt"

	"peersync/pkg/document"
	"peersync/pkg/log"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Field 资源字段描述符
type Field struct {
	Name       string `mapstructure:"name"`
	Type       string `mapstructure:"type"`
	Required   bool   `mapstructure:"required"`
	References string `mapstructure:"references"` // 引用目标资源名，空表示普通属性
}

// Resource 一个可同步资源的模式
type Resource struct {
	Name   string  `mapstructure:"name"`
	Fields []Field `mapstructure:"fields"`
}

// FieldError 单个属性的校验错误
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Registry 显式模式注册表，进程启动时从配置加载一次。
// 引擎只消费这份注册表，不接触任何业务表结构
type Registry struct {
	resources map[string]*Resource
	order     []string
}

func NewRegistry(conf *viper.Viper, logger *log.Logger) *Registry {
	var resources []*Resource
	if err := conf.UnmarshalKey("resources", &resources); err != nil {
		panic(fmt.Sprintf("invalid resources config: %v", err))
	}

	r := &Registry{resources: make(map[string]*Resource, len(resources))}
	for _, res := range resources {
		if res.Name == "" {
			panic("resource with empty name in config")
		}
		if _, dup := r.resources[res.Name]; dup {
			panic(fmt.Sprintf("duplicate resource in config: %s", res.Name))
		}
		r.resources[res.Name] = res
		r.order = append(r.order, res.Name)
	}
	logger.Info("resource registry loaded", zap.Int("resources", len(r.order)))
	return r
}

// List 注册顺序返回所有资源名
func (r *Registry) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Get(name string) (*Resource, error) {
	res, ok := r.resources[name]
	if !ok {
		return nil, &document.UnknownResourceError{Resource: name}
	}
	return res, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.resources[name]
	return ok
}

// Validate 校验一条入站记录的属性与引用，返回字段级错误集合
func (res *Resource) Validate(attributes map[string]interface{}, references map[string]string) []FieldError {
	var errs []FieldError
	for _, f := range res.Fields {
		if f.References != "" {
			if f.Required {
				if _, ok := references[f.Name]; !ok {
					errs = append(errs, FieldError{Field: f.Name, Message: "required reference missing"})
				}
			}
			continue
		}
		if f.Required {
			v, ok := attributes[f.Name]
			if !ok || v == nil {
				errs = append(errs, FieldError{Field: f.Name, Message: "required attribute missing"})
			}
		}
	}
	return errs
}

// ReferenceTargets field -> 目标资源名
func (res *Resource) ReferenceTargets() map[string]string {
	targets := make(map[string]string)
	for _, f := range res.Fields {
		if f.References != "" {
			targets[f.Name] = f.References
		}
	}
	return targets
}
