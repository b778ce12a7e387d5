package services

import (
	"fmt"

	"payflow/internal/domain"
	"payflow/internal/repos"
)

type ProductService struct {
	Products *repos.ProductRepo
}

func NewProductService(products *repos.ProductRepo) *ProductService {
	return &ProductService{Products: products}
}

func (s *ProductService) List() ([]domain.Product, error) {
	return s.Products.FindActive()
}

func (s *ProductService) Get(id string) (domain.Product, error) {
	p, err := s.Products.FindActiveByID(id)
	if err != nil {
		return domain.Product{}, err
	}
	if p == nil {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return *p, nil
}
