// Package factory provides a small generic registry used to instantiate
// modules such as metrics sinks from configuration. A module is a type name
// plus a map of raw settings that the factory decodes into its own struct.
//
//	reg := factory.NewRegistry[io.Reader]()
//	reg.Register("file", func(conf map[string]any) (io.Reader, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Open(c.Path)
//	})
package factory
