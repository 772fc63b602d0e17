package repository

import "gorm.io/datatypes"

func datatypesJSON(ids []string) datatypes.JSONSlice[string] {
	if ids == nil {
		ids = []string{}
	}
	return datatypes.JSONSlice[string](ids)
}
