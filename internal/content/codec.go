package content

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/UkralStul/sitecms/internal/domain"
)

// toTree превращает значение в дерево map[string]interface{} через JSON.
func toTree(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decodeTree(raw)
}

// decodeTree разбирает JSON-объект. Всё, что не объект (null, массив, скаляр), считается пустым объектом.
func decodeTree(raw []byte) (map[string]interface{}, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	tree, ok := v.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}, nil
	}
	return tree, nil
}

// fromTree собирает типизированный блок: значения по умолчанию, поверх которых наложено дерево.
func fromTree(key domain.BlockKey, id uint, tree map[string]interface{}) (Block, error) {
	raw, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	block := Default(key)
	if err := json.Unmarshal(raw, block.payload()); err != nil {
		return nil, fmt.Errorf("%s payload: %w", key, err)
	}
	// null в массиве секций превращается в пустой список
	if hp, ok := block.(*HomePage); ok && hp.Sections == nil {
		hp.Sections = []Section{}
	}
	block.setID(id)
	return block, nil
}
