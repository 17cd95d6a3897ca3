package sql

import "fmt"

// Scanner helpers for array-valued columns. The wire codec decodes an
// array cell to []any, which database/sql hands to sql.Scanner
// implementations untouched; these adapt the common element types.

type StringSlice struct {
	Data []string
}

func (s *StringSlice) Scan(src any) error {
	arr, ok := src.([]any)
	if !ok {
		return fmt.Errorf("scanning %T into StringSlice", src)
	}

	for _, elem := range arr {
		str, ok := elem.(string)
		if !ok {
			return fmt.Errorf("scanning %T element into StringSlice", elem)
		}
		s.Data = append(s.Data, str)
	}
	return nil
}

type IntSlice struct {
	Data []int
}

func (s *IntSlice) Scan(src any) error {
	arr, ok := src.([]any)
	if !ok {
		return fmt.Errorf("scanning %T into IntSlice", src)
	}

	for _, elem := range arr {
		switch num := elem.(type) {
		case int:
			s.Data = append(s.Data, num)
		case int64:
			s.Data = append(s.Data, int(num))
		case int32:
			s.Data = append(s.Data, int(num))
		case uint64:
			s.Data = append(s.Data, int(num))
		case uint32:
			s.Data = append(s.Data, int(num))
		default:
			return fmt.Errorf("scanning %T element into IntSlice", elem)
		}
	}
	return nil
}

type FloatSlice struct {
	Data []float64
}

func (s *FloatSlice) Scan(src any) error {
	arr, ok := src.([]any)
	if !ok {
		return fmt.Errorf("scanning %T into FloatSlice", src)
	}

	for _, elem := range arr {
		switch num := elem.(type) {
		case int:
			s.Data = append(s.Data, float64(num))
		case int64:
			s.Data = append(s.Data, float64(num))
		case uint64:
			s.Data = append(s.Data, float64(num))
		case float32:
			s.Data = append(s.Data, float64(num))
		case float64:
			s.Data = append(s.Data, num)
		default:
			return fmt.Errorf("scanning %T element into FloatSlice", elem)
		}
	}
	return nil
}
